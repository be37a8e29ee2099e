/*
 * Filename: /Users/yqin/code/enrichmap/randomize.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Thursday, March 25th 2021, 8:14:27 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// IterationResult records the outcome of one randomized iteration. Failures
// are data, not aborts: a crashed GSEA run must never take its siblings down.
type IterationResult struct {
	Index  int
	Rundir string
	Err    error
}

// Randomizer drives the class-label randomization loop. Every iteration
// permutes the labels, reruns the DGE glue and GSEA, and leaves its output
// in an iteration-unique directory, so workers share nothing writable.
type Randomizer struct {
	Matrixfile  string
	Clsfile     string
	Gmtfile     string
	Jarfile     string
	Script      string
	Outdir      string
	Iterations  int
	Workers     int
	Seed        int64
	MinCPM      float64
	GseaMinSize int
	GseaMaxSize int
	MemGB       int
	Timeout     time.Duration
}

// DefaultWorkers is the worker pool size used when none is configured:
// available processors minus one, at least one
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// IterationDir names the output directory of one iteration
func IterationDir(outdir string, index int) string {
	return path.Join(outdir, fmt.Sprintf("iter_%04d", index))
}

// Run executes the whole randomization loop and reports the failure count.
// Per-worker results are kept in worker-local slices and merged only after
// every worker has joined.
func (r *Randomizer) Run(ctx context.Context) error {
	matrix, err := ParseCountsMatrix(r.Matrixfile)
	if err != nil {
		return err
	}
	labels, err := ParseCLSFile(r.Clsfile)
	if err != nil {
		return err
	}
	if err := matrix.ValidateLabels(labels); err != nil {
		return err
	}
	if err := mkdir(r.Outdir); err != nil {
		return err
	}

	workers := r.Workers
	if workers < 1 {
		workers = DefaultWorkers()
	}
	log.Noticef("Randomizing labels %d times on %d workers", r.Iterations, workers)

	indexes := make(chan int)
	local := make([][]IterationResult, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for idx := range indexes {
				res := r.runIteration(ctx, idx, matrix, labels)
				if res.Err != nil {
					log.Errorf("Iteration %d failed: %v", idx, res.Err)
				}
				local[w] = append(local[w], res)
			}
			return nil
		})
	}
	for idx := 0; idx < r.Iterations; idx++ {
		indexes <- idx
	}
	close(indexes)
	if err := g.Wait(); err != nil {
		return err
	}

	// Explicit reduction step: merge worker-local results
	var results []IterationResult
	for _, chunk := range local {
		results = append(results, chunk...)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Warningf("%s iterations failed and will be skipped by aggregation",
			Percentage(failed, r.Iterations))
	}
	log.Noticef("Randomization loop done: %s iterations usable",
		Percentage(r.Iterations-failed, r.Iterations))
	return nil
}

// runIteration performs one independent iteration: permute, rank, enrich
func (r *Randomizer) runIteration(ctx context.Context, index int, matrix *CountsMatrix, labels *ClassLabels) IterationResult {
	res := IterationResult{Index: index, Rundir: IterationDir(r.Outdir, index)}

	// Each iteration derives its own deterministic stream from the base seed
	rng := rand.New(rand.NewSource(r.Seed + int64(index)))
	permuted := labels.Permute(rng)

	if res.Err = mkdir(res.Rundir); res.Err != nil {
		return res
	}
	clsfile := path.Join(res.Rundir, fmt.Sprintf("iter_%04d.cls", index))
	if res.Err = permuted.WriteCLS(clsfile); res.Err != nil {
		return res
	}

	ranker := &RankRunner{
		Script:  r.Script,
		Workdir: path.Join(res.Rundir, "dge"),
		MinCPM:  r.MinCPM,
	}
	ranking, err := ranker.Rank(ctx, matrix, permuted)
	if err != nil {
		res.Err = err
		return res
	}
	rnkfile := path.Join(res.Rundir, fmt.Sprintf("iter_%04d.rnk", index))
	if res.Err = ranking.WriteRNK(rnkfile); res.Err != nil {
		return res
	}

	gsea := &GseaRunner{
		Jarfile:      r.Jarfile,
		Rnkfile:      rnkfile,
		Gmtfile:      r.Gmtfile,
		Outdir:       path.Join(res.Rundir, "gsea"),
		Label:        fmt.Sprintf("rand_%04d", index),
		Permutations: 1, // scores only; the empirical null is this loop itself
		MinSize:      r.GseaMinSize,
		MaxSize:      r.GseaMaxSize,
		MemGB:        r.MemGB,
		Seed:         r.Seed + int64(index),
		Timeout:      r.Timeout,
	}
	res.Err = gsea.Run(ctx)
	return res
}

// AggregatePopulation walks the randomization output directory and merges
// every parsable iteration into one RandomizationPopulation. Missing or
// malformed iterations are counted and skipped, never fatal on their own;
// only an entirely unusable directory is.
func AggregatePopulation(outdir string, iterations int) (*RandomizationPopulation, int, error) {
	population := NewRandomizationPopulation()
	skipped := 0
	parsed := 0
	for index := 0; index < iterations; index++ {
		rundir := IterationDir(outdir, index)
		if _, err := os.Stat(rundir); err != nil {
			log.Warningf("Iteration %d has no output directory, skipped", index)
			skipped++
			continue
		}
		records, err := ParseRunReports(path.Join(rundir, "gsea"))
		if err != nil {
			log.Warningf("Iteration %d unusable: %v", index, err)
			skipped++
			continue
		}
		population.AddAll(records)
		parsed++
	}
	if parsed == 0 {
		return nil, skipped, fmt.Errorf("no usable iterations under `%s`", outdir)
	}
	log.Noticef("Aggregated %s iterations into populations for %d gene sets",
		Percentage(parsed, iterations), len(population.Sets()))
	return population, skipped, nil
}
