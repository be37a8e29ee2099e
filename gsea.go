/*
 * Filename: /Users/yqin/code/enrichmap/gsea.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Sunday, March 21st 2021, 10:05:44 am
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnrichmentRecord is one gene set row of a GSEA report
type EnrichmentRecord struct {
	Name     string
	ES       float64
	NES      float64
	NominalP float64
	FDRq     float64
}

// GseaRunner wraps one invocation of the external GSEA jar in preranked
// mode. The only success signal GSEA gives is a zero exit plus the presence
// of its report files; there is no structured status to parse.
type GseaRunner struct {
	Jarfile      string
	Rnkfile      string
	Gmtfile      string
	Outdir       string
	Label        string
	Permutations int
	MinSize      int
	MaxSize      int
	MemGB        int
	Seed         int64
	Timeout      time.Duration
}

// Command assembles the java command line for this run
func (r *GseaRunner) Command(ctx context.Context) *exec.Cmd {
	args := []string{
		fmt.Sprintf("-Xmx%dG", r.MemGB),
		"-cp", r.Jarfile,
		"xtools.gsea.GseaPreranked",
		"-rnk", r.Rnkfile,
		"-gmx", r.Gmtfile,
		"-nperm", strconv.Itoa(r.Permutations),
		"-permute", "gene_set",
		"-scoring_scheme", "classic",
		"-set_min", strconv.Itoa(r.MinSize),
		"-set_max", strconv.Itoa(r.MaxSize),
		"-rnd_seed", strconv.FormatInt(r.Seed, 10),
		"-rpt_label", r.Label,
		"-out", r.Outdir,
		"-collapse", "false",
		"-gui", "false",
	}
	return exec.CommandContext(ctx, "java", args...)
}

// Run launches GSEA, bounded by the configured timeout, and verifies that
// report files exist afterwards
func (r *GseaRunner) Run(ctx context.Context) error {
	if err := mkdir(r.Outdir); err != nil {
		return err
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := r.Command(ctx)
	log.Noticef("Running GSEA: %s", strings.Join(cmd.Args, " "))
	start := time.Now()
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("GSEA run `%s` failed: %v\n%s", r.Label, err, tail(string(out), 20))
	}
	reports, err := FindReports(r.Outdir)
	if err != nil {
		return err
	}
	log.Noticef("GSEA run `%s` finished in %.1fs, %d report files",
		r.Label, time.Since(start).Seconds(), len(reports))
	return nil
}

// FindReports locates the tab-separated gsea_report_for_*.xls files below a
// run directory. An empty result is an error since report presence is the
// success contract.
func FindReports(dir string) ([]string, error) {
	var reports []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(p)
		if !info.IsDir() && strings.HasPrefix(base, "gsea_report_for_") &&
			strings.HasSuffix(base, ".xls") {
			reports = append(reports, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot scan `%s` for reports: %v", dir, err)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no GSEA report files under `%s`", dir)
	}
	return reports, nil
}

// reportSchema maps the columns we require to their header spellings. GSEA
// writes "FDR q-val"; R users will know the same column as FDR.q.val, so the
// dotted spelling is accepted too.
var reportSchema = map[string][]string{
	"NAME": {"NAME"},
	"ES":   {"ES"},
	"NES":  {"NES"},
	"NOMP": {"NOM p-val", "NOM.p.val"},
	"FDRQ": {"FDR q-val", "FDR.q.val"},
}

// ParseEnrichmentReport reads one GSEA report (.xls in name, tab-separated
// in fact). All schema columns are resolved by header name at load and a
// missing or renamed column fails immediately. Rows whose ES field is blank
// (GSEA emits these for degenerate sets) are skipped and counted.
func ParseEnrichmentReport(filename string) ([]EnrichmentRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open report `%s`: %v", filename, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var records []EnrichmentRecord
	cols := make(map[string]int)
	sawHeader := false
	skipped := 0
	lineno := 0
	for {
		row, err := reader.ReadString('\n')
		row = strings.TrimRight(row, "\r\n")
		if row == "" && err == io.EOF {
			break
		}
		lineno++
		words := strings.Split(row, "\t")
		if !sawHeader {
			sawHeader = true
			index := make(map[string]int)
			for i, name := range words {
				index[name] = i
			}
			for key, spellings := range reportSchema {
				cols[key] = -1
				for _, spelling := range spellings {
					if i, ok := index[spelling]; ok {
						cols[key] = i
						break
					}
				}
				if cols[key] < 0 {
					return nil, fmt.Errorf("%s: report is missing column %v",
						filename, spellings)
				}
			}
			if err == io.EOF {
				break
			}
			continue
		}
		rec, rowErr := parseReportRow(words, cols)
		if rowErr == errBlankES {
			skipped++
		} else if rowErr != nil {
			return nil, fmt.Errorf("%s:%d: %v", filename, lineno, rowErr)
		} else {
			records = append(records, rec)
		}
		if err == io.EOF {
			break
		}
	}
	if skipped > 0 {
		log.Warningf("Skipped %d report rows with blank ES in `%s`", skipped, filename)
	}
	log.Noticef("Imported %d enrichment records from `%s`", len(records), filename)
	return records, nil
}

var errBlankES = fmt.Errorf("blank ES")

func parseReportRow(words []string, cols map[string]int) (EnrichmentRecord, error) {
	var rec EnrichmentRecord
	for _, i := range cols {
		if i >= len(words) {
			return rec, fmt.Errorf("short row (%d fields)", len(words))
		}
	}
	rec.Name = words[cols["NAME"]]
	if strings.TrimSpace(words[cols["ES"]]) == "" {
		return rec, errBlankES
	}
	var err error
	if rec.ES, err = strconv.ParseFloat(words[cols["ES"]], 64); err != nil {
		return rec, fmt.Errorf("bad ES `%s` for set `%s`", words[cols["ES"]], rec.Name)
	}
	if rec.NES, err = strconv.ParseFloat(words[cols["NES"]], 64); err != nil {
		return rec, fmt.Errorf("bad NES `%s` for set `%s`", words[cols["NES"]], rec.Name)
	}
	if rec.NominalP, err = strconv.ParseFloat(words[cols["NOMP"]], 64); err != nil {
		return rec, fmt.Errorf("bad NOM p-val `%s` for set `%s`", words[cols["NOMP"]], rec.Name)
	}
	if rec.FDRq, err = strconv.ParseFloat(words[cols["FDRQ"]], 64); err != nil {
		return rec, fmt.Errorf("bad FDR q-val `%s` for set `%s`", words[cols["FDRQ"]], rec.Name)
	}
	return rec, nil
}

// ParseRunReports parses and concatenates every report file of one GSEA run
// directory (GSEA splits positive and negative scores into two files)
func ParseRunReports(dir string) ([]EnrichmentRecord, error) {
	reports, err := FindReports(dir)
	if err != nil {
		return nil, err
	}
	var records []EnrichmentRecord
	for _, report := range reports {
		recs, err := ParseEnrichmentReport(report)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

// tail returns the last n lines of a process transcript for error messages
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
