/*
 * Filename: /Users/yqin/code/enrichmap/compare.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Saturday, March 27th 2021, 4:41:50 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	fet "github.com/glycerine/golang-fisher-exact"
)

// VennCounts partitions the tested gene set universe between two runs at a
// fixed FDR cutoff
type VennCounts struct {
	AOnly    int
	BOnly    int
	Both     int
	Neither  int
	Universe int
	// RightP is the one-sided Fisher exact p-value for the overlap being
	// larger than chance given the universe
	RightP float64
}

// Comparer loads two empirical FDR tables and summarizes how their
// significant gene sets overlap
type Comparer struct {
	TableA  string
	TableB  string
	Outfile string
	QCutoff float64
}

// SignificantSets returns the names with empirical FDR at or below the cutoff
func SignificantSets(rows []FDRRow, qCutoff float64) map[string]bool {
	names := make(map[string]bool)
	for _, row := range rows {
		if row.EmpiricalFDR <= qCutoff {
			names[row.Name] = true
		}
	}
	return names
}

// CompareSets computes the Venn partition of two significant-set calls over
// the union universe of both tables
func CompareSets(rowsA, rowsB []FDRRow, qCutoff float64) VennCounts {
	sigA := SignificantSets(rowsA, qCutoff)
	sigB := SignificantSets(rowsB, qCutoff)

	universe := make(map[string]bool)
	for _, row := range rowsA {
		universe[row.Name] = true
	}
	for _, row := range rowsB {
		universe[row.Name] = true
	}

	var v VennCounts
	v.Universe = len(universe)
	for name := range universe {
		switch {
		case sigA[name] && sigB[name]:
			v.Both++
		case sigA[name]:
			v.AOnly++
		case sigB[name]:
			v.BOnly++
		default:
			v.Neither++
		}
	}
	_, _, rightp, _ := fet.FisherExactTest(v.Both, v.AOnly, v.BOnly, v.Neither)
	v.RightP = rightp
	return v
}

// Run writes the Venn summary and the table of sets shared by both runs
func (r *Comparer) Run() error {
	rowsA, err := ParseFDRTable(r.TableA)
	if err != nil {
		return err
	}
	rowsB, err := ParseFDRTable(r.TableB)
	if err != nil {
		return err
	}
	v := CompareSets(rowsA, rowsB, r.QCutoff)
	log.Noticef("At FDR <= %.3g: %d A-only, %d B-only, %d shared of %d tested (Fisher right p = %.3g)",
		r.QCutoff, v.AOnly, v.BOnly, v.Both, v.Universe, v.RightP)

	f, err := os.Create(r.Outfile)
	if err != nil {
		return fmt.Errorf("cannot create comparison file `%s`: %v", r.Outfile, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "#qCutoff\t%g\n", r.QCutoff)
	fmt.Fprintf(w, "#AOnly\t%d\n#BOnly\t%d\n#Both\t%d\n#Universe\t%d\n#FisherRightP\t%g\n",
		v.AOnly, v.BOnly, v.Both, v.Universe, v.RightP)
	fmt.Fprintln(w, "NAME\tEmpiricalFDR_A\tEmpiricalFDR_B")

	fdrA := make(map[string]float64)
	for _, row := range rowsA {
		fdrA[row.Name] = row.EmpiricalFDR
	}
	sigB := SignificantSets(rowsB, r.QCutoff)
	var shared []string
	for name := range SignificantSets(rowsA, r.QCutoff) {
		if sigB[name] {
			shared = append(shared, name)
		}
	}
	sort.Strings(shared)
	fdrB := make(map[string]float64)
	for _, row := range rowsB {
		fdrB[row.Name] = row.EmpiricalFDR
	}
	for _, name := range shared {
		fmt.Fprintf(w, "%s\t%g\t%g\n", name, fdrA[name], fdrB[name])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Noticef("Comparison written to `%s`", r.Outfile)
	return nil
}
