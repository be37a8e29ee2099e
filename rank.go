/*
 * Filename: /Users/yqin/code/enrichmap/rank.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Thursday, March 18th 2021, 8:51:30 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// RankedGene pairs one gene symbol with its signed ranking score
type RankedGene struct {
	Name  string
	Score float64
}

// Ranking is the ordered gene list handed to the enrichment engine
type Ranking []RankedGene

// RankMetric combines a fold change and a p-value into the signed score
// sign(logFC) * -log10(p). The p-value is floored at MinPValue so a reported
// zero does not turn into +Inf.
func RankMetric(logFC, pValue float64) float64 {
	if pValue < MinPValue {
		pValue = MinPValue
	}
	return Sign(logFC) * -math.Log10(pValue)
}

// Sort orders the ranking by score descending. The sort is stable so tied
// genes keep their input order.
func (r Ranking) Sort() {
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Score > r[j].Score
	})
}

// WriteRNK writes a GSEA .rnk file: a "GeneName\trank" header then one
// tab-separated row per gene, sorted by rank descending, no quoting
func (r Ranking) WriteRNK(filename string) error {
	r.Sort()
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create rnk file `%s`: %v", filename, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "GeneName\trank\n")
	for _, g := range r {
		fmt.Fprintf(w, "%s\t%s\n", g.Name, strconv.FormatFloat(g.Score, 'g', -1, 64))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Noticef("Wrote %d ranked genes to `%s`", len(r), filename)
	return nil
}

// ParseRNKFile reads a .rnk file back, re-sorting defensively in case the
// producer did not honor the descending order
func ParseRNKFile(filename string) (Ranking, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open rnk file `%s`: %v", filename, err)
	}
	defer f.Close()

	var ranking Ranking
	seen := make(map[string]bool)
	reader := bufio.NewReader(f)
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
		words := strings.Split(row, "\t")
		if len(words) != 2 {
			return nil, fmt.Errorf("%s:%d: rnk line needs 2 fields, got %d",
				filename, lineno, len(words))
		}
		if lineno == 1 && strings.EqualFold(words[0], "GeneName") {
			continue // header
		}
		score, convErr := strconv.ParseFloat(words[1], 64)
		if convErr != nil {
			return nil, fmt.Errorf("%s:%d: bad rank `%s` for gene `%s`",
				filename, lineno, words[1], words[0])
		}
		if seen[words[0]] {
			return nil, fmt.Errorf("%s:%d: duplicate gene `%s`", filename, lineno, words[0])
		}
		seen[words[0]] = true
		ranking = append(ranking, RankedGene{Name: words[0], Score: score})
		if err == io.EOF {
			break
		}
	}
	ranking.Sort()
	log.Noticef("Imported %d ranked genes from `%s`", len(ranking), filename)
	return ranking, nil
}
