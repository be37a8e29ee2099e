/*
 * Filename: /Users/yqin/code/enrichmap/gmt.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Tuesday, March 16th 2021, 8:02:17 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"fmt"
	"io"
	"strings"

	"github.com/shenwei356/xopen"
)

// GeneSet is one named collection of gene symbols from a .gmt file
type GeneSet struct {
	Name        string
	Description string
	Genes       []string
}

// GeneSetCollection stores the gene sets of one .gmt file in file order
type GeneSetCollection struct {
	Sets  []*GeneSet
	index map[string]*GeneSet
}

// Size returns the number of genes in the set
func (r *GeneSet) Size() int {
	return len(r.Genes)
}

// Contains tests the membership of a single gene symbol
func (r *GeneSet) Contains(gene string) bool {
	for _, g := range r.Genes {
		if g == gene {
			return true
		}
	}
	return false
}

// ParseGMTFile reads a .gmt gene set collection, plain or gzipped. Each line
// is tab-separated: set name, description, then one field per gene symbol.
func ParseGMTFile(filename string) (*GeneSetCollection, error) {
	reader, err := xopen.Ropen(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open gmt file `%s`: %v", filename, err)
	}
	defer reader.Close()

	c := &GeneSetCollection{index: make(map[string]*GeneSet)}
	lineno := 0
	for {
		row, err := reader.ReadString('\n')
		row = strings.TrimRight(row, "\r\n")
		if row == "" && err == io.EOF {
			break
		}
		lineno++
		if row == "" {
			continue
		}
		words := strings.Split(row, "\t")
		if len(words) < 2 {
			return nil, fmt.Errorf("%s:%d: gmt line needs name and description, got %d fields",
				filename, lineno, len(words))
		}
		name := words[0]
		if _, seen := c.index[name]; seen {
			return nil, fmt.Errorf("%s:%d: duplicate gene set `%s`", filename, lineno, name)
		}
		var genes []string
		for _, g := range words[2:] {
			if g != "" {
				genes = append(genes, g)
			}
		}
		set := &GeneSet{Name: name, Description: words[1], Genes: genes}
		c.Sets = append(c.Sets, set)
		c.index[name] = set
		if err == io.EOF {
			break
		}
	}
	log.Noticef("Imported %d gene sets from `%s`", len(c.Sets), filename)
	return c, nil
}

// Get looks up a gene set by name
func (r *GeneSetCollection) Get(name string) (*GeneSet, bool) {
	set, ok := r.index[name]
	return set, ok
}

// Len returns the number of gene sets in the collection
func (r *GeneSetCollection) Len() int {
	return len(r.Sets)
}

// FilterBySize keeps only the gene sets within [minSize, maxSize], matching
// what the enrichment engine will actually test
func (r *GeneSetCollection) FilterBySize(minSize, maxSize int) *GeneSetCollection {
	c := &GeneSetCollection{index: make(map[string]*GeneSet)}
	for _, set := range r.Sets {
		if set.Size() < minSize || set.Size() > maxSize {
			continue
		}
		c.Sets = append(c.Sets, set)
		c.index[set.Name] = set
	}
	log.Noticef("Kept %s gene sets with size in [%d, %d]",
		Percentage(len(c.Sets), len(r.Sets)), minSize, maxSize)
	return c
}

// WriteGMT writes the collection back out in .gmt format
func (r *GeneSetCollection) WriteGMT(filename string) error {
	writer, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("cannot create gmt file `%s`: %v", filename, err)
	}
	defer writer.Close()

	for _, set := range r.Sets {
		fmt.Fprintf(writer, "%s\t%s\t%s\n",
			set.Name, set.Description, strings.Join(set.Genes, "\t"))
	}
	log.Noticef("Wrote %d gene sets to `%s`", len(r.Sets), filename)
	return nil
}
