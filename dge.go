/*
 * Filename: /Users/yqin/code/enrichmap/dge.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Saturday, March 20th 2021, 2:19:08 pm
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
	"path"
	"strconv"
	"strings"
)

// RankRunner is the differential-expression glue. It prefilters the counts
// matrix, hands matrix and labels to an external edgeR driver script, and
// turns the per-gene statistics that come back into a .rnk ranking. The
// statistics themselves are never computed here.
type RankRunner struct {
	Matrixfile string
	Clsfile    string
	Script     string
	Outfile    string
	Workdir    string
	MinCPM     float64
}

// ScoreRecord is one row of the external script's per-gene output
type ScoreRecord struct {
	Gene   string
	LogFC  float64
	PValue float64
}

// Run executes the DGE glue step end to end
func (r *RankRunner) Run(ctx context.Context) error {
	matrix, err := ParseCountsMatrix(r.Matrixfile)
	if err != nil {
		return err
	}
	labels, err := ParseCLSFile(r.Clsfile)
	if err != nil {
		return err
	}
	ranking, err := r.Rank(ctx, matrix, labels)
	if err != nil {
		return err
	}
	return ranking.WriteRNK(r.Outfile)
}

// Rank validates shapes, filters low expression, invokes the external script
// and parses its score table. The in-memory labels argument lets the
// randomization loop reuse one parsed matrix across permuted label sets.
func (r *RankRunner) Rank(ctx context.Context, matrix *CountsMatrix, labels *ClassLabels) (Ranking, error) {
	if err := matrix.ValidateLabels(labels); err != nil {
		return nil, err
	}
	filtered := matrix.FilterLowExpression(r.MinCPM, labels.MinClassSize())

	if err := mkdir(r.Workdir); err != nil {
		return nil, err
	}
	matrixfile := path.Join(r.Workdir, "filtered_counts.txt")
	clsfile := path.Join(r.Workdir, "labels.cls")
	scorefile := path.Join(r.Workdir, "scores.txt")
	if err := filtered.WriteTSV(matrixfile); err != nil {
		return nil, err
	}
	if err := labels.WriteCLS(clsfile); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "Rscript", r.Script, matrixfile, clsfile, scorefile)
	log.Noticef("Running DGE script: %s", strings.Join(cmd.Args, " "))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("DGE script failed: %v\n%s", err, string(out))
	}

	scores, err := ParseScoreTable(scorefile)
	if err != nil {
		return nil, err
	}
	ranking := make(Ranking, 0, len(scores))
	for _, s := range scores {
		ranking = append(ranking, RankedGene{Name: s.Gene, Score: RankMetric(s.LogFC, s.PValue)})
	}
	ranking.Sort()
	return ranking, nil
}

// ParseScoreTable reads the tab-separated per-gene table produced by the DGE
// script. Columns are resolved by header name; Gene, logFC and PValue must
// all be present or the load fails immediately.
func ParseScoreTable(filename string) ([]ScoreRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open score table `%s`: %v", filename, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var records []ScoreRecord
	var geneCol, fcCol, pCol int
	sawHeader := false
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
			geneCol, fcCol, pCol = -1, -1, -1
			for i, name := range words {
				switch strings.ToLower(strings.Trim(name, `"`)) {
				case "gene", "genename", "symbol":
					geneCol = i
				case "logfc":
					fcCol = i
				case "pvalue", "p.value":
					pCol = i
				}
			}
			if geneCol < 0 || fcCol < 0 || pCol < 0 {
				return nil, fmt.Errorf("%s: header `%s` is missing Gene/logFC/PValue",
					filename, row)
			}
			if err == io.EOF {
				break
			}
			continue
		}
		if len(words) <= geneCol || len(words) <= fcCol || len(words) <= pCol {
			return nil, fmt.Errorf("%s:%d: short row", filename, lineno)
		}
		logFC, e1 := strconv.ParseFloat(words[fcCol], 64)
		pValue, e2 := strconv.ParseFloat(words[pCol], 64)
		if e1 != nil || e2 != nil {
			return nil, fmt.Errorf("%s:%d: bad numeric fields for gene `%s`",
				filename, lineno, words[geneCol])
		}
		records = append(records, ScoreRecord{
			Gene:   strings.Trim(words[geneCol], `"`),
			LogFC:  logFC,
			PValue: pValue,
		})
		if err == io.EOF {
			break
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("score table `%s` has no data rows", filename)
	}
	return records, nil
}
