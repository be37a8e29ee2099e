/*
 *  gsea_test.go
 *  enrichmap
 *
 *  Created by Yang Qin on 04/05/21
 *  Copyright © 2021 Yang Qin. All rights reserved.
 */

package enrichmap_test

import (
	"context"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/emlab/enrichmap"
)

func TestParseEnrichmentReport(t *testing.T) {
	records, err := enrichmap.ParseEnrichmentReport(path.Join("tests", "test_report_pos.xls"))
	if err != nil {
		t.Fatalf("ParseEnrichmentReport returned error: %v", err)
	}
	// DEGENERATE has a blank ES and must be skipped, not scored
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.Name != "APOPTOSIS" {
		t.Errorf("unexpected first record %+v", first)
	}
	if first.ES != 0.45 || first.NES != 1.60 || first.NominalP != 0.012 || first.FDRq != 0.105 {
		t.Errorf("unexpected numeric fields %+v", first)
	}
}

func TestParseEnrichmentReportNegativeScores(t *testing.T) {
	records, err := enrichmap.ParseEnrichmentReport(path.Join("tests", "test_report_neg.xls"))
	if err != nil {
		t.Fatalf("ParseEnrichmentReport returned error: %v", err)
	}
	if len(records) != 1 || records[0].ES != -0.38 || records[0].NES != -1.42 {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestParseEnrichmentReportMissingColumn(t *testing.T) {
	if _, err := enrichmap.ParseEnrichmentReport(path.Join("tests", "bad_report.xls")); err == nil {
		t.Error("report without an NES column parsed successfully")
	}
}

func TestFindReports(t *testing.T) {
	if _, err := enrichmap.FindReports(t.TempDir()); err == nil {
		t.Error("FindReports found reports in an empty directory")
	}
}

func TestGseaRunnerCommand(t *testing.T) {
	r := &enrichmap.GseaRunner{
		Jarfile:      "gsea.jar",
		Rnkfile:      "observed.rnk",
		Gmtfile:      "sets.gmt",
		Outdir:       "gsea_out",
		Label:        "observed",
		Permutations: 1000,
		MinSize:      15,
		MaxSize:      500,
		MemGB:        4,
		Seed:         42,
		Timeout:      time.Minute,
	}
	cmd := r.Command(context.Background())
	line := strings.Join(cmd.Args, " ")
	for _, want := range []string{
		"java", "-Xmx4G", "-cp gsea.jar", "xtools.gsea.GseaPreranked",
		"-rnk observed.rnk", "-gmx sets.gmt", "-nperm 1000",
		"-scoring_scheme classic", "-rnd_seed 42", "-rpt_label observed",
		"-out gsea_out",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("command %q is missing %q", line, want)
		}
	}
}
