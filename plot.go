/*
 * Filename: /Users/yqin/code/enrichmap/plot.go
 * Path: /Users/yqin/code/enrichmap
 * Created Date: Monday, March 29th 2021, 9:55:21 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package enrichmap

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/gobuffalo/packr"
)

// nHistBins is the number of bins of the ES population histogram
const nHistBins = 30

// Plotter renders the empirical FDR table, and optionally one gene set's
// randomization population, into HTML charts
type Plotter struct {
	Tablefile  string
	Randdir    string
	SetName    string
	Iterations int
	Outdir     string
	Serve      bool
}

// Run renders all requested charts and optionally serves them
func (r *Plotter) Run() error {
	if err := mkdir(r.Outdir); err != nil {
		return err
	}
	rows, err := ParseFDRTable(r.Tablefile)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.AddCharts(scatterNESvsFDR(rows))

	if r.SetName != "" {
		if r.Randdir == "" {
			return fmt.Errorf("plotting set `%s` needs the randomization directory", r.SetName)
		}
		population, _, err := AggregatePopulation(r.Randdir, r.Iterations)
		if err != nil {
			return err
		}
		esPop, err := population.ES(r.SetName)
		if err != nil {
			return err
		}
		observed := math.NaN()
		for _, row := range rows {
			if row.Name == r.SetName {
				observed = row.ES
				break
			}
		}
		page.AddCharts(histogramES(r.SetName, esPop, observed))
	}

	outfile := path.Join(r.Outdir, "enrichmap.html")
	f, err := os.Create(outfile)
	if err != nil {
		return fmt.Errorf("cannot create plot file `%s`: %v", outfile, err)
	}
	if err := page.Render(f); err != nil {
		return err
	}
	_ = f.Close()
	log.Noticef("Charts written to `%s`", outfile)

	if r.Serve {
		r.host()
	}
	return nil
}

// scatterNESvsFDR plots each tested gene set as (NES, empirical FDR)
func scatterNESvsFDR(rows []FDRRow) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Empirical FDR vs NES",
			Subtitle: fmt.Sprintf("%d gene sets", len(rows)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "NES", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "empirical FDR"}),
	)
	var data []opts.ScatterData
	for _, row := range rows {
		data = append(data, opts.ScatterData{
			Name:  row.Name,
			Value: []interface{}{row.NES, row.EmpiricalFDR},
		})
	}
	scatter.AddSeries("gene sets", data)
	return scatter
}

// histogramES bins one gene set's random ES population into a bar chart.
// The observed score lands in the subtitle so the tail being counted is
// visible at a glance.
func histogramES(name string, population []float64, observed float64) *charts.Bar {
	lo, hi := population[0], population[0]
	for _, v := range population {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / nHistBins
	if width == 0 {
		width = 1
	}
	counts := make([]int, nHistBins)
	for _, v := range population {
		bin := int((v - lo) / width)
		if bin >= nHistBins {
			bin = nHistBins - 1
		}
		counts[bin]++
	}

	bar := charts.NewBar()
	subtitle := fmt.Sprintf("n = %d randomizations", len(population))
	if !math.IsNaN(observed) {
		subtitle = fmt.Sprintf("%s, observed ES = %.3f", subtitle, observed)
	}
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Random ES distribution: " + name, Subtitle: subtitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: "ES"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	var labels []string
	var data []opts.BarData
	for i, c := range counts {
		labels = append(labels, fmt.Sprintf("%.2f", lo+float64(i)*width))
		data = append(data, opts.BarData{Value: c})
	}
	bar.SetXAxis(labels).AddSeries("random ES", data)
	return bar
}

// host serves the rendered charts, walking up from port 3000 until one binds
func (r *Plotter) host() {
	box := packr.NewBox("./templates")
	port := 3000
	f, _ := os.Create(path.Join(r.Outdir, "index.html"))
	s, _ := box.FindString("index.html")
	_, _ = f.WriteString(s)
	_ = f.Sync()

	http.Handle("/", http.FileServer(http.Dir(r.Outdir)))

	for {
		log.Noticef("Serving plots on localhost:%d ...", port)
		if err := http.ListenAndServe(":"+strconv.Itoa(port), nil); err != nil {
			log.Debug(err)
			port++
		} else {
			break
		}
	}
	_ = f.Close()
}
