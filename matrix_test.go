/*
 *  matrix_test.go
 *  enrichmap
 *
 *  Created by Yang Qin on 04/03/21
 *  Copyright © 2021 Yang Qin. All rights reserved.
 */

package enrichmap_test

import (
	"math"
	"path"
	"reflect"
	"testing"

	"github.com/emlab/enrichmap"
)

func TestParseCountsMatrix(t *testing.T) {
	matrix, err := enrichmap.ParseCountsMatrix(path.Join("tests", "test.counts.txt"))
	if err != nil {
		t.Fatalf("ParseCountsMatrix returned error: %v", err)
	}
	if matrix.NGenes() != 6 {
		t.Errorf("expected 6 genes, got %d", matrix.NGenes())
	}
	if !reflect.DeepEqual(matrix.Samples, []string{"S1", "S2", "S3", "S4", "S5", "S6"}) {
		t.Errorf("unexpected samples %v", matrix.Samples)
	}
	if matrix.Genes[0] != "ACTB" || matrix.Counts[0][0] != 500 {
		t.Errorf("unexpected first row %s %v", matrix.Genes[0], matrix.Counts[0])
	}
}

func TestCPMSumsToMillion(t *testing.T) {
	matrix, err := enrichmap.ParseCountsMatrix(path.Join("tests", "test.counts.txt"))
	if err != nil {
		t.Fatalf("ParseCountsMatrix returned error: %v", err)
	}
	cpm := matrix.CPM()
	for j := range matrix.Samples {
		total := 0.0
		for i := range matrix.Genes {
			total += cpm[i][j]
		}
		if math.Abs(total-1e6) > 1e-6 {
			t.Errorf("sample %s CPM sums to %v, want 1e6", matrix.Samples[j], total)
		}
	}
}

func TestFilterLowExpression(t *testing.T) {
	matrix, err := enrichmap.ParseCountsMatrix(path.Join("tests", "test.counts.txt"))
	if err != nil {
		t.Fatalf("ParseCountsMatrix returned error: %v", err)
	}
	// LOWG sits around 1000 CPM in these tiny libraries; everything else is
	// at least an order of magnitude higher
	filtered := matrix.FilterLowExpression(10000, 3)
	if filtered.NGenes() != 5 {
		t.Fatalf("expected 5 genes after filtering, got %d: %v",
			filtered.NGenes(), filtered.Genes)
	}
	for _, gene := range filtered.Genes {
		if gene == "LOWG" {
			t.Error("LOWG survived the low expression filter")
		}
	}
}

func TestValidateLabelsAgainstMatrix(t *testing.T) {
	matrix, err := enrichmap.ParseCountsMatrix(path.Join("tests", "test.counts.txt"))
	if err != nil {
		t.Fatalf("ParseCountsMatrix returned error: %v", err)
	}
	labels, err := enrichmap.ParseCLSFile(path.Join("tests", "test.cls"))
	if err != nil {
		t.Fatalf("ParseCLSFile returned error: %v", err)
	}
	if err := matrix.ValidateLabels(labels); err != nil {
		t.Errorf("matching shapes rejected: %v", err)
	}

	short := &enrichmap.ClassLabels{Classes: labels.Classes, Labels: labels.Labels[:4]}
	if err := matrix.ValidateLabels(short); err == nil {
		t.Error("shape mismatch accepted")
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	matrix, err := enrichmap.ParseCountsMatrix(path.Join("tests", "test.counts.txt"))
	if err != nil {
		t.Fatalf("ParseCountsMatrix returned error: %v", err)
	}
	outfile := path.Join(t.TempDir(), "roundtrip.txt")
	if err := matrix.WriteTSV(outfile); err != nil {
		t.Fatalf("WriteTSV returned error: %v", err)
	}
	again, err := enrichmap.ParseCountsMatrix(outfile)
	if err != nil {
		t.Fatalf("reparse returned error: %v", err)
	}
	if !reflect.DeepEqual(matrix, again) {
		t.Error("round trip changed the matrix")
	}
}
