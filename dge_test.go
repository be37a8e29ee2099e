/*
 *  dge_test.go
 *  enrichmap
 *
 *  Created by Yang Qin on 04/08/21
 *  Copyright © 2021 Yang Qin. All rights reserved.
 */

package enrichmap_test

import (
	"io/ioutil"
	"math"
	"path"
	"testing"

	"github.com/emlab/enrichmap"
)

func TestParseScoreTable(t *testing.T) {
	scorefile := path.Join(t.TempDir(), "scores.txt")
	content := "Gene\tlogFC\tPValue\n" +
		"MYC\t2.1\t0.001\n" +
		"TP53\t-1.4\t0.02\n"
	if err := ioutil.WriteFile(scorefile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	records, err := enrichmap.ParseScoreTable(scorefile)
	if err != nil {
		t.Fatalf("ParseScoreTable returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Gene != "MYC" || records[0].LogFC != 2.1 || records[0].PValue != 0.001 {
		t.Errorf("unexpected first record %+v", records[0])
	}
}

func TestParseScoreTableQuotedRHeader(t *testing.T) {
	// write.table in R quotes strings and calls the p-value column P.Value
	scorefile := path.Join(t.TempDir(), "scores.txt")
	content := "\"Gene\"\t\"logFC\"\t\"PValue\"\n" +
		"\"MYC\"\t0.5\t0.1\n"
	if err := ioutil.WriteFile(scorefile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	records, err := enrichmap.ParseScoreTable(scorefile)
	if err != nil {
		t.Fatalf("ParseScoreTable returned error: %v", err)
	}
	if records[0].Gene != "MYC" {
		t.Errorf("quoted gene not unquoted: %+v", records[0])
	}
}

func TestParseScoreTableMissingColumn(t *testing.T) {
	scorefile := path.Join(t.TempDir(), "scores.txt")
	content := "Gene\tlogFC\nMYC\t2.1\n"
	if err := ioutil.WriteFile(scorefile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := enrichmap.ParseScoreTable(scorefile); err == nil {
		t.Error("score table without PValue column parsed successfully")
	}
}

func TestScoreToRankMetric(t *testing.T) {
	// The glue converts logFC and p into sign(logFC) * -log10(p)
	up := enrichmap.RankMetric(2.1, 0.001)
	down := enrichmap.RankMetric(-1.4, 0.02)
	if up <= 0 || down >= 0 {
		t.Errorf("rank metric signs wrong: up=%v down=%v", up, down)
	}
	if math.Abs(up-3.0) > 1e-12 {
		t.Errorf("up=%v; want 3", up)
	}
}
