/*
 * Filename: /Users/yqin/code/enrichmap/matrix.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Wednesday, March 17th 2021, 7:28:55 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"
)

// CountsMatrix is a gene x sample table of raw read counts.
// Counts[i][j] is the count of Genes[i] in Samples[j].
type CountsMatrix struct {
	Genes   []string
	Samples []string
	Counts  [][]float64
}

// ParseCountsMatrix reads a tab-separated gene x sample counts table, plain
// or gzipped. The first column holds gene symbols, the header row holds
// sample names. A GCT file is accepted too: the "#1.2" and dimensions
// preamble are skipped and the Description column is dropped.
func ParseCountsMatrix(filename string) (*CountsMatrix, error) {
	reader, err := xopen.Ropen(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open counts file `%s`: %v", filename, err)
	}
	defer reader.Close()

	m := &CountsMatrix{}
	isGCT := false
	sawHeader := false
	lineno := 0
	for {
		row, err := reader.ReadString('\n')
		row = strings.TrimRight(row, "\r\n")
		if row == "" && err == io.EOF {
			break
		}
		lineno++
		if row == "" {
			if err == io.EOF {
				break
			}
			continue
		}
		if lineno == 1 && strings.HasPrefix(row, "#1.2") {
			isGCT = true
			continue
		}
		words := strings.Split(row, "\t")
		if isGCT && !sawHeader && len(words) == 2 {
			// GCT dimensions line, e.g. "18543\t12"
			continue
		}
		if !sawHeader {
			sawHeader = true
			m.Samples = words[1:]
			if isGCT && len(m.Samples) > 0 && strings.EqualFold(m.Samples[0], "Description") {
				m.Samples = m.Samples[1:]
			}
			if len(m.Samples) == 0 {
				return nil, fmt.Errorf("%s: header row has no sample columns", filename)
			}
			if err == io.EOF {
				break
			}
			continue
		}
		fields := words[1:]
		if isGCT && len(fields) == len(m.Samples)+1 {
			fields = fields[1:] // Description column
		}
		if len(fields) != len(m.Samples) {
			return nil, fmt.Errorf("%s:%d: gene `%s` has %d values, expected %d",
				filename, lineno, words[0], len(fields), len(m.Samples))
		}
		counts := make([]float64, len(fields))
		for j, field := range fields {
			v, convErr := strconv.ParseFloat(field, 64)
			if convErr != nil {
				return nil, fmt.Errorf("%s:%d: bad count `%s` for gene `%s`",
					filename, lineno, field, words[0])
			}
			counts[j] = v
		}
		m.Genes = append(m.Genes, words[0])
		m.Counts = append(m.Counts, counts)
		if err == io.EOF {
			break
		}
	}
	if !sawHeader {
		return nil, fmt.Errorf("counts file `%s` is empty", filename)
	}
	log.Noticef("Imported counts for %d genes x %d samples from `%s`",
		len(m.Genes), len(m.Samples), filename)
	return m, nil
}

// NGenes returns the number of gene rows
func (r *CountsMatrix) NGenes() int {
	return len(r.Genes)
}

// LibrarySizes returns the per-sample total counts
func (r *CountsMatrix) LibrarySizes() []float64 {
	sizes := make([]float64, len(r.Samples))
	for _, counts := range r.Counts {
		for j, v := range counts {
			sizes[j] += v
		}
	}
	return sizes
}

// CPM converts raw counts into counts-per-million, per sample. A sample with
// an empty library yields zeros rather than NaN.
func (r *CountsMatrix) CPM() [][]float64 {
	sizes := r.LibrarySizes()
	cpm := make([][]float64, len(r.Counts))
	for i, counts := range r.Counts {
		row := make([]float64, len(counts))
		for j, v := range counts {
			if sizes[j] > 0 {
				row[j] = v / sizes[j] * 1e6
			}
		}
		cpm[i] = row
	}
	return cpm
}

// FilterLowExpression drops genes that fail to reach minCPM in at least
// minSamples samples. This mirrors the usual edgeR prefilter, where
// minSamples is the size of the smallest class.
func (r *CountsMatrix) FilterLowExpression(minCPM float64, minSamples int) *CountsMatrix {
	cpm := r.CPM()
	m := &CountsMatrix{Samples: r.Samples}
	for i := range r.Genes {
		expressed := 0
		for _, v := range cpm[i] {
			if v >= minCPM {
				expressed++
			}
		}
		if expressed >= minSamples {
			m.Genes = append(m.Genes, r.Genes[i])
			m.Counts = append(m.Counts, r.Counts[i])
		}
	}
	log.Noticef("Kept %s genes with CPM >= %.1f in >= %d samples",
		Percentage(len(m.Genes), len(r.Genes)), minCPM, minSamples)
	return m
}

// ValidateLabels checks the class labels against this matrix (see spec on
// data-shape mismatches: this failure must precede any computation)
func (r *CountsMatrix) ValidateLabels(labels *ClassLabels) error {
	return labels.Validate(r.Samples)
}

// WriteTSV writes the matrix as a plain tab-separated table with a header row
func (r *CountsMatrix) WriteTSV(filename string) error {
	writer, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("cannot create counts file `%s`: %v", filename, err)
	}
	defer writer.Close()

	fmt.Fprintf(writer, "Gene\t%s\n", strings.Join(r.Samples, "\t"))
	for i, gene := range r.Genes {
		fields := make([]string, len(r.Counts[i]))
		for j, v := range r.Counts[i] {
			fields[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		fmt.Fprintf(writer, "%s\t%s\n", gene, strings.Join(fields, "\t"))
	}
	return nil
}
