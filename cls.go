/*
 * Filename: /Users/yqin/code/enrichmap/cls.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Tuesday, March 16th 2021, 9:44:03 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// ClassLabels holds the per-sample phenotype assignment of a .cls file.
// Labels keeps the original sample order, which must match the column order
// of the counts matrix.
type ClassLabels struct {
	Classes []string
	Labels  []string
}

// NSamples returns the number of samples
func (r *ClassLabels) NSamples() int {
	return len(r.Labels)
}

// ClassSizes counts the samples per class, keyed by class name
func (r *ClassLabels) ClassSizes() map[string]int {
	sizes := make(map[string]int)
	for _, label := range r.Labels {
		sizes[label]++
	}
	return sizes
}

// MinClassSize returns the size of the smallest class
func (r *ClassLabels) MinClassSize() int {
	smallest := len(r.Labels)
	for _, n := range r.ClassSizes() {
		if n < smallest {
			smallest = n
		}
	}
	return smallest
}

// ParseCLSFile reads a GSEA categorical .cls file. Line 1 is
// "<N_samples> <N_classes> 1", line 2 is "# <class1> <class2> ...", line 3
// has one label per sample.
func ParseCLSFile(filename string) (*ClassLabels, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open cls file `%s`: %v", filename, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 3 {
		return nil, fmt.Errorf("cls file `%s` has %d lines, expected 3", filename, len(lines))
	}

	header := strings.Fields(lines[0])
	if len(header) != 3 {
		return nil, fmt.Errorf("cls header `%s` must have 3 fields", lines[0])
	}
	nSamples, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("cls sample count `%s` is not a number", header[0])
	}
	nClasses, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("cls class count `%s` is not a number", header[1])
	}

	classLine := strings.Fields(lines[1])
	if len(classLine) < 1 || classLine[0] != "#" {
		return nil, fmt.Errorf("cls class line `%s` must start with #", lines[1])
	}
	classes := classLine[1:]
	if len(classes) != nClasses {
		return nil, fmt.Errorf("cls declares %d classes but names %d", nClasses, len(classes))
	}

	labels := strings.Fields(lines[2])
	if len(labels) != nSamples {
		return nil, fmt.Errorf("cls declares %d samples but labels %d", nSamples, len(labels))
	}

	known := make(map[string]bool)
	for _, class := range classes {
		known[class] = true
	}
	for i, label := range labels {
		if !known[label] {
			return nil, fmt.Errorf("sample %d has label `%s`, not one of %v", i, label, classes)
		}
	}

	c := &ClassLabels{Classes: classes, Labels: labels}
	log.Noticef("Imported %d samples in %d classes from `%s`", nSamples, nClasses, filename)
	return c, nil
}

// WriteCLS writes the labels in the exact 3-line .cls byte format
func (r *ClassLabels) WriteCLS(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create cls file `%s`: %v", filename, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d 1\n", len(r.Labels), len(r.Classes))
	fmt.Fprintf(w, "# %s\n", strings.Join(r.Classes, " "))
	fmt.Fprintf(w, "%s\n", strings.Join(r.Labels, "\t"))
	return w.Flush()
}

// Validate checks the labels against the matrix sample columns. A count
// mismatch is fatal before any computation proceeds.
func (r *ClassLabels) Validate(samples []string) error {
	if len(samples) != len(r.Labels) {
		return fmt.Errorf("matrix has %d sample columns but cls labels %d samples",
			len(samples), len(r.Labels))
	}
	return nil
}

// Permute returns a new ClassLabels whose label sequence is a uniformly
// random reordering of the existing labels. The label multiset, hence every
// class size, is preserved exactly. Class names are shared, labels are copied.
func (r *ClassLabels) Permute(rng *rand.Rand) *ClassLabels {
	labels := make([]string, len(r.Labels))
	copy(labels, r.Labels)
	rng.Shuffle(len(labels), func(i, j int) {
		labels[i], labels[j] = labels[j], labels[i]
	})
	return &ClassLabels{Classes: r.Classes, Labels: labels}
}
