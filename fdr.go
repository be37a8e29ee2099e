/*
 * Filename: /Users/yqin/code/enrichmap/fdr.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Tuesday, March 23rd 2021, 9:37:12 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrMissingPopulation signals that a gene set has no randomization
// population at all. Callers must not read this as FDR = 0.
var ErrMissingPopulation = errors.New("no randomization population for gene set")

// RandomizationPopulation collects, per gene set, the ES and NES values
// observed across the label-randomized runs. It is append-only while the
// runs are parsed and read-only once FDR computation starts.
type RandomizationPopulation struct {
	es  map[string][]float64
	nes map[string][]float64
}

// NewRandomizationPopulation makes an empty population
func NewRandomizationPopulation() *RandomizationPopulation {
	return &RandomizationPopulation{
		es:  make(map[string][]float64),
		nes: make(map[string][]float64),
	}
}

// Add appends one randomized run's record for its gene set
func (r *RandomizationPopulation) Add(rec EnrichmentRecord) {
	r.es[rec.Name] = append(r.es[rec.Name], rec.ES)
	r.nes[rec.Name] = append(r.nes[rec.Name], rec.NES)
}

// AddAll appends every record of one randomized run
func (r *RandomizationPopulation) AddAll(recs []EnrichmentRecord) {
	for _, rec := range recs {
		r.Add(rec)
	}
}

// ES returns the ES population of one gene set, or ErrMissingPopulation
func (r *RandomizationPopulation) ES(name string) ([]float64, error) {
	population, ok := r.es[name]
	if !ok || len(population) == 0 {
		return nil, fmt.Errorf("%w: `%s`", ErrMissingPopulation, name)
	}
	return population, nil
}

// NES returns the NES population of one gene set, or ErrMissingPopulation
func (r *RandomizationPopulation) NES(name string) ([]float64, error) {
	population, ok := r.nes[name]
	if !ok || len(population) == 0 {
		return nil, fmt.Errorf("%w: `%s`", ErrMissingPopulation, name)
	}
	return population, nil
}

// Size returns the population size for one gene set, 0 when absent
func (r *RandomizationPopulation) Size(name string) int {
	return len(r.es[name])
}

// Sets returns the gene set names present in the population, sorted
func (r *RandomizationPopulation) Sets() []string {
	names := make([]string, 0, len(r.es))
	for name := range r.es {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EstimateFDR computes the one-sided empirical FDR proxy of an observed
// enrichment score against a randomization population. Scores below zero are
// counted against the left tail (strictly less), all others against the
// right tail (strictly greater). The count is divided by the configured
// number of randomizations, NOT by the population's own size; the two stay
// independent on purpose and the caller is responsible for warning when they
// differ.
func EstimateFDR(observed float64, population []float64, denominator int) (float64, error) {
	if len(population) == 0 {
		return 0, errors.New("empty randomization population")
	}
	if denominator < 1 {
		return 0, fmt.Errorf("denominator must be positive, got %d", denominator)
	}
	extreme := 0
	if observed < 0 {
		for _, v := range population {
			if v < observed {
				extreme++
			}
		}
	} else {
		for _, v := range population {
			if v > observed {
				extreme++
			}
		}
	}
	return float64(extreme) / float64(denominator), nil
}

// FDRRow is one gene set row of the empirical FDR table
type FDRRow struct {
	Name         string
	ES           float64
	NES          float64
	GseaFDRq     float64
	PopSize      int
	EmpiricalFDR float64
	RandMeanES   float64
	RandMedianES float64
	RandP95ES    float64
	NormalP      float64
}

// String outputs the tab-separated representation of FDRRow
func (r FDRRow) String() string {
	return fmt.Sprintf("%s\t%.4f\t%.4f\t%.4g\t%d\t%.4g\t%.4f\t%.4f\t%.4f\t%.4g",
		r.Name, r.ES, r.NES, r.GseaFDRq, r.PopSize, r.EmpiricalFDR,
		r.RandMeanES, r.RandMedianES, r.RandP95ES, r.NormalP)
}

// fdrTableHeader is the header row of the FDR table file
const fdrTableHeader = "NAME\tES\tNES\tGSEA_FDR_q\tPopSize\tEmpiricalFDR\tRandMeanES\tRandMedianES\tRandP95ES\tNormalP"

// BuildFDRTable joins one observed run against the randomization population.
// Observed sets that never appear in any randomized run are skipped and
// counted, never scored as 0 (the per-set API is EstimateSetFDR for callers
// that must see the distinct error). The denominator is the configured
// permutation count; a mismatch against the actual population size is logged
// once since the quotient is then no longer a true proportion.
func BuildFDRTable(observed []EnrichmentRecord, population *RandomizationPopulation, denominator int) ([]FDRRow, int, error) {
	var rows []FDRRow
	missing := 0
	mismatched := 0
	for _, rec := range observed {
		row, err := EstimateSetFDR(rec, population, denominator)
		if errors.Is(err, ErrMissingPopulation) {
			missing++
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if row.PopSize != denominator {
			mismatched++
		}
		rows = append(rows, row)
	}
	if missing > 0 {
		log.Warningf("Skipped %s observed gene sets absent from the randomization population",
			Percentage(missing, len(observed)))
	}
	if mismatched > 0 {
		log.Warningf("%d gene sets have population size != denominator %d; their empirical FDR is not a true proportion",
			mismatched, denominator)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].EmpiricalFDR < rows[j].EmpiricalFDR
	})
	return rows, missing, nil
}

// EstimateSetFDR scores a single observed record against the population.
// The error is ErrMissingPopulation-wrapped when the set was never seen in
// any randomized run.
func EstimateSetFDR(rec EnrichmentRecord, population *RandomizationPopulation, denominator int) (FDRRow, error) {
	esPop, err := population.ES(rec.Name)
	if err != nil {
		return FDRRow{}, err
	}
	empirical, err := EstimateFDR(rec.ES, esPop, denominator)
	if err != nil {
		return FDRRow{}, err
	}

	mean, _ := stats.Mean(esPop)
	median, _ := stats.Median(esPop)
	p95, _ := stats.Percentile(esPop, 95)

	row := FDRRow{
		Name:         rec.Name,
		ES:           rec.ES,
		NES:          rec.NES,
		GseaFDRq:     rec.FDRq,
		PopSize:      len(esPop),
		EmpiricalFDR: empirical,
		RandMeanES:   mean,
		RandMedianES: median,
		RandP95ES:    p95,
		NormalP:      1,
	}

	// Parametric sanity check of the NES against its own null, reported next
	// to the empirical value rather than replacing it
	if nesPop, err := population.NES(rec.Name); err == nil && len(nesPop) > 1 {
		nesMean, _ := stats.Mean(nesPop)
		nesSD, _ := stats.StandardDeviationSample(nesPop)
		if nesSD > 0 {
			z := (rec.NES - nesMean) / nesSD
			row.NormalP = 2 * distuv.UnitNormal.Survival(math.Abs(z))
		}
	}
	return row, nil
}

// WriteFDRTable writes the table as plain TSV
func WriteFDRTable(rows []FDRRow, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create FDR table `%s`: %v", filename, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, fdrTableHeader)
	for _, row := range rows {
		fmt.Fprintln(w, row)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Noticef("Wrote empirical FDR for %d gene sets to `%s`", len(rows), filename)
	return nil
}

// ParseFDRTable reads a table written by WriteFDRTable back in
func ParseFDRTable(filename string) ([]FDRRow, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open FDR table `%s`: %v", filename, err)
	}
	defer f.Close()

	wantFields := len(strings.Split(fdrTableHeader, "\t"))
	var rows []FDRRow
	reader := bufio.NewReader(f)
	lineno := 0
	for {
		row, err := reader.ReadString('\n')
		row = strings.TrimRight(row, "\r\n")
		if row == "" && err == io.EOF {
			break
		}
		lineno++
		if lineno == 1 {
			if row != fdrTableHeader {
				return nil, fmt.Errorf("%s: unexpected header `%s`", filename, row)
			}
			if err == io.EOF {
				break
			}
			continue
		}
		words := strings.Split(row, "\t")
		if len(words) != wantFields {
			return nil, fmt.Errorf("%s:%d: expected %d fields, got %d",
				filename, lineno, wantFields, len(words))
		}
		var r FDRRow
		r.Name = words[0]
		vals := make([]float64, 0, wantFields-1)
		ok := true
		for _, w := range words[1:] {
			v, convErr := strconv.ParseFloat(w, 64)
			if convErr != nil {
				ok = false
				break
			}
			vals = append(vals, v)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%d: bad numeric field", filename, lineno)
		}
		r.ES, r.NES, r.GseaFDRq = vals[0], vals[1], vals[2]
		r.PopSize = int(vals[3])
		r.EmpiricalFDR = vals[4]
		r.RandMeanES, r.RandMedianES, r.RandP95ES = vals[5], vals[6], vals[7]
		r.NormalP = vals[8]
		rows = append(rows, r)
		if err == io.EOF {
			break
		}
	}
	return rows, nil
}
