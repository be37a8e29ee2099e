/*
 *  randomize_test.go
 *  enrichmap
 *
 *  Created by Yang Qin on 04/08/21
 *  Copyright © 2021 Yang Qin. All rights reserved.
 */

package enrichmap_test

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/emlab/enrichmap"
)

const reportHeader = "NAME\tGS<br> follow link to MSigDB\tGS DETAILS\tSIZE\tES\tNES\tNOM p-val\tFDR q-val\tFWER p-val\tRANK AT MAX\tLEADING EDGE\n"

// writeIteration fakes one finished randomization iteration on disk
func writeIteration(t *testing.T, outdir string, index int, es float64) {
	t.Helper()
	gseadir := path.Join(enrichmap.IterationDir(outdir, index), "gsea")
	if err := os.MkdirAll(gseadir, 0755); err != nil {
		t.Fatal(err)
	}
	report := path.Join(gseadir, fmt.Sprintf("gsea_report_for_rand_%04d_pos.xls", index))
	row := fmt.Sprintf("APOPTOSIS\tAPOPTOSIS\tDetails ...\t3\t%g\t%g\t0.5\t0.5\t0.9\t100\ttags=10%%\n",
		es, es*1.1)
	if err := ioutil.WriteFile(report, []byte(reportHeader+row), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIterationDirNaming(t *testing.T) {
	got := enrichmap.IterationDir("rand_out", 7)
	expected := path.Join("rand_out", "iter_0007")
	if got != expected {
		t.Errorf("IterationDir=%q; want %q", got, expected)
	}
	// Iteration-unique names are the no-locking guarantee of the loop
	if enrichmap.IterationDir("rand_out", 7) == enrichmap.IterationDir("rand_out", 8) {
		t.Error("two iterations share an output directory")
	}
}

func TestDefaultWorkers(t *testing.T) {
	if enrichmap.DefaultWorkers() < 1 {
		t.Errorf("DefaultWorkers=%d; want >= 1", enrichmap.DefaultWorkers())
	}
}

func TestAggregatePopulationSkipsFailedIterations(t *testing.T) {
	outdir := t.TempDir()
	writeIteration(t, outdir, 0, 0.30)
	writeIteration(t, outdir, 2, -0.25)
	// Iteration 1 never produced output and must be skipped, not fatal

	population, skipped, err := enrichmap.AggregatePopulation(outdir, 3)
	if err != nil {
		t.Fatalf("AggregatePopulation returned error: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped=%d; want 1", skipped)
	}
	if population.Size("APOPTOSIS") != 2 {
		t.Errorf("population size=%d; want 2", population.Size("APOPTOSIS"))
	}
	esPop, err := population.ES("APOPTOSIS")
	if err != nil {
		t.Fatalf("ES returned error: %v", err)
	}
	if len(esPop) != 2 {
		t.Errorf("ES population %v; want 2 values", esPop)
	}
}

func TestAggregatePopulationAllFailed(t *testing.T) {
	if _, _, err := enrichmap.AggregatePopulation(t.TempDir(), 5); err == nil {
		t.Error("AggregatePopulation succeeded with zero usable iterations")
	}
}

func TestAggregateThenEstimate(t *testing.T) {
	outdir := t.TempDir()
	for i, es := range []float64{-0.4, -0.1, 0.1, 0.2, 0.5} {
		writeIteration(t, outdir, i, es)
	}
	population, _, err := enrichmap.AggregatePopulation(outdir, 5)
	if err != nil {
		t.Fatalf("AggregatePopulation returned error: %v", err)
	}
	esPop, err := population.ES("APOPTOSIS")
	if err != nil {
		t.Fatal(err)
	}
	fdr, err := enrichmap.EstimateFDR(0.3, esPop, 5)
	if err != nil {
		t.Fatal(err)
	}
	if fdr != 0.2 { // only 0.5 exceeds 0.3
		t.Errorf("fdr=%v; want 0.2", fdr)
	}
}
