/*
 * Filename: /Users/yqin/code/enrichmap/cmd/enrichmap/main.go
 * Path: /Users/yqin/code/enrichmap/cmd/enrichmap
 * Created Date: Tuesday, March 30th 2021, 8:20:15 pm
 * Author: yqin
 *
 * Copyright (c) 2021 Yang Qin
 */

package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/emlab/enrichmap"
	logging "github.com/op/go-logging"
	"github.com/urfave/cli"
)

var log = logging.MustGetLogger("main")

// init customizes how cli layout the command interface
// Logo banner (Varsity style):
// http://patorjk.com/software/taag/#p=testall&f=3D-ASCII&t=EMAP
func init() {
	cli.AppHelpTemplate = `
 ________  ____    ____       _       _______
|_   __  ||_   \  /   _|     / \     |_   __ \
  | |_ \_|  |   \/   |      / _ \      | |__) |
  |  _| _   | |\  /| |     / ___ \     |  ___/
 _| |__/ | _| |_\/_| |_  _/ /   \ \_  _| |_
|________||_____||_____||____| |____||_____|

` + cli.AppHelpTemplate
}

// banner prints the separate steps
func banner(message string) {
	message = "* " + message + " *"
	log.Noticef(strings.Repeat("*", len(message)))
	log.Noticef(message)
	log.Noticef(strings.Repeat("*", len(message)))
}

// main is the entrypoint for the entire program, routes to commands
func main() {
	logging.SetBackend(enrichmap.BackendFormatter)

	app := cli.NewApp()
	app.Compiled = time.Now()
	app.Copyright = "(c) Yang Qin 2021"
	app.Name = "enrichmap"
	app.Usage = "GSEA enrichment-map pipeline with randomization-based FDR"
	app.Version = enrichmap.Version

	rankFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "script",
			Usage: "edgeR driver script run as `Rscript script matrix cls out`",
			Value: "edger_rank.R",
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "Output .rnk file",
			Value: "observed.rnk",
		},
		cli.StringFlag{
			Name:  "workdir",
			Usage: "Scratch directory for the DGE exchange files",
			Value: "dge_work",
		},
		cli.Float64Flag{
			Name:  "minCPM",
			Usage: "CPM cutoff for low expression filtering",
			Value: enrichmap.DefaultMinCPM,
		},
	}

	gseaFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "jar",
			Usage: "Path to the GSEA jar",
			Value: "gsea.jar",
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "GSEA output directory",
			Value: "gsea_out",
		},
		cli.StringFlag{
			Name:  "label",
			Usage: "Report label of this run",
			Value: "observed",
		},
		cli.IntFlag{
			Name:  "permutations",
			Usage: "GSEA internal permutation count",
			Value: enrichmap.DefaultPermutations,
		},
		cli.IntFlag{
			Name:  "minSize",
			Usage: "Smallest gene set tested",
			Value: enrichmap.DefaultGseaMinSize,
		},
		cli.IntFlag{
			Name:  "maxSize",
			Usage: "Largest gene set tested",
			Value: enrichmap.DefaultGseaMaxSize,
		},
		cli.IntFlag{
			Name:  "mem",
			Usage: "Java heap in GB",
			Value: enrichmap.DefaultGseaMemGB,
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "Random seed",
			Value: 42,
		},
		cli.IntFlag{
			Name:  "timeout",
			Usage: "Per-run timeout in minutes",
			Value: enrichmap.DefaultTimeoutMinutes,
		},
	}

	randomizeFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "script",
			Usage: "edgeR driver script run once per iteration",
			Value: "edger_rank.R",
		},
		cli.StringFlag{
			Name:  "jar",
			Usage: "Path to the GSEA jar",
			Value: "gsea.jar",
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "Directory receiving one subdirectory per iteration",
			Value: "rand_out",
		},
		cli.IntFlag{
			Name:  "permutations",
			Usage: "Number of label randomizations, also the later FDR denominator",
			Value: enrichmap.DefaultPermutations,
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "Worker pool size (0 = NumCPU - 1)",
		},
		cli.Float64Flag{
			Name:  "minCPM",
			Usage: "CPM cutoff for low expression filtering",
			Value: enrichmap.DefaultMinCPM,
		},
		cli.IntFlag{
			Name:  "minSize",
			Usage: "Smallest gene set tested",
			Value: enrichmap.DefaultGseaMinSize,
		},
		cli.IntFlag{
			Name:  "maxSize",
			Usage: "Largest gene set tested",
			Value: enrichmap.DefaultGseaMaxSize,
		},
		cli.IntFlag{
			Name:  "mem",
			Usage: "Java heap in GB",
			Value: enrichmap.DefaultGseaMemGB,
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "Base random seed; iteration i uses seed + i",
			Value: 42,
		},
		cli.IntFlag{
			Name:  "timeout",
			Usage: "Per-iteration GSEA timeout in minutes",
			Value: enrichmap.DefaultTimeoutMinutes,
		},
	}

	fdrFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "permutations",
			Usage: "Configured randomization count, used as the FDR denominator",
			Value: enrichmap.DefaultPermutations,
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "Output FDR table",
			Value: "empirical_fdr.txt",
		},
	}

	compareFlags := []cli.Flag{
		cli.Float64Flag{
			Name:  "q",
			Usage: "Empirical FDR cutoff for significance",
			Value: enrichmap.DefaultQCutoff,
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "Output comparison file",
			Value: "venn.txt",
		},
	}

	mapFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "url",
			Usage: "CyREST base URL",
			Value: enrichmap.DefaultCyRESTURL,
		},
		cli.StringFlag{
			Name:  "name",
			Usage: "Name of the network in Cytoscape",
			Value: "enrichmap",
		},
		cli.Float64Flag{
			Name:  "q",
			Usage: "FDR q-value cutoff for nodes",
			Value: enrichmap.DefaultQCutoff,
		},
	}

	plotFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "randdir",
			Usage: "Randomization output directory (needed with --set)",
		},
		cli.StringFlag{
			Name:  "set",
			Usage: "Gene set whose random ES distribution to plot",
		},
		cli.IntFlag{
			Name:  "permutations",
			Usage: "Iteration count of the randomization directory",
			Value: enrichmap.DefaultPermutations,
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "Directory for the HTML charts",
			Value: "plots",
		},
		cli.BoolFlag{
			Name:  "serve",
			Usage: "Host the charts over HTTP after rendering",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "rank",
			Usage: "Run the differential-expression glue and write a .rnk file",
			UsageText: `
	enrichmap rank counts.txt labels.cls [options]

Rank function:
Given a gene x sample counts table and a .cls phenotype file, filter lowly
expressed genes by CPM, hand the filtered table to the external edgeR driver
script, and convert the per-gene logFC / PValue output into a GSEA .rnk
ranking (sign of fold change times -log10 p).
`,
			Flags: rankFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowSubcommandHelp(c)
					return cli.NewExitError("Must specify counts file and cls file", 1)
				}
				banner("Differential expression ranking")
				r := &enrichmap.RankRunner{
					Matrixfile: c.Args().Get(0),
					Clsfile:    c.Args().Get(1),
					Script:     c.String("script"),
					Outfile:    c.String("out"),
					Workdir:    c.String("workdir"),
					MinCPM:     c.Float64("minCPM"),
				}
				return r.Run(context.Background())
			},
		},
		{
			Name:  "gsea",
			Usage: "Run one GSEA preranked analysis",
			UsageText: `
	enrichmap gsea ranks.rnk sets.gmt [options]

Gsea function:
Invoke the external GSEA jar in preranked mode on a .rnk ranking and a .gmt
gene set collection. Success is a zero exit plus report files in the output
directory; the reports feed the fdr and map steps.
`,
			Flags: gseaFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowSubcommandHelp(c)
					return cli.NewExitError("Must specify rnk file and gmt file", 1)
				}
				banner("GSEA preranked")
				r := &enrichmap.GseaRunner{
					Jarfile:      c.String("jar"),
					Rnkfile:      c.Args().Get(0),
					Gmtfile:      c.Args().Get(1),
					Outdir:       c.String("out"),
					Label:        c.String("label"),
					Permutations: c.Int("permutations"),
					MinSize:      c.Int("minSize"),
					MaxSize:      c.Int("maxSize"),
					MemGB:        c.Int("mem"),
					Seed:         c.Int64("seed"),
					Timeout:      time.Duration(c.Int("timeout")) * time.Minute,
				}
				return r.Run(context.Background())
			},
		},
		{
			Name:  "randomize",
			Usage: "Run the class-label randomization loop",
			UsageText: `
	enrichmap randomize counts.txt labels.cls sets.gmt [options]

Randomize function:
Permute the class labels --permutations times (each permutation preserves the
class sizes exactly), rerun the DGE glue and GSEA per permutation on a worker
pool, and leave one uniquely named output directory per iteration. Failed
iterations are skipped by aggregation, not fatal. The same --permutations
value is later the denominator of the empirical FDR.
`,
			Flags: randomizeFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 3 {
					cli.ShowSubcommandHelp(c)
					return cli.NewExitError("Must specify counts, cls and gmt files", 1)
				}
				banner("Class-label randomization")
				r := &enrichmap.Randomizer{
					Matrixfile:  c.Args().Get(0),
					Clsfile:     c.Args().Get(1),
					Gmtfile:     c.Args().Get(2),
					Jarfile:     c.String("jar"),
					Script:      c.String("script"),
					Outdir:      c.String("out"),
					Iterations:  c.Int("permutations"),
					Workers:     c.Int("workers"),
					Seed:        c.Int64("seed"),
					MinCPM:      c.Float64("minCPM"),
					GseaMinSize: c.Int("minSize"),
					GseaMaxSize: c.Int("maxSize"),
					MemGB:       c.Int("mem"),
					Timeout:     time.Duration(c.Int("timeout")) * time.Minute,
				}
				return r.Run(context.Background())
			},
		},
		{
			Name:  "fdr",
			Usage: "Estimate empirical FDR from the randomization populations",
			UsageText: `
	enrichmap fdr observed_gsea_dir random_dir [options]

Fdr function:
Parse the observed GSEA reports, aggregate the per-gene-set ES populations
from the randomization directory, and compute the one-sided empirical FDR of
every observed gene set. The denominator is --permutations, independent of
how many iterations actually produced reports; a mismatch is warned about,
never silently rescaled.
`,
			Flags: fdrFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowSubcommandHelp(c)
					return cli.NewExitError("Must specify observed and randomization directories", 1)
				}
				banner("Empirical FDR estimation")
				observed, err := enrichmap.ParseRunReports(c.Args().Get(0))
				if err != nil {
					return err
				}
				permutations := c.Int("permutations")
				population, _, err := enrichmap.AggregatePopulation(c.Args().Get(1), permutations)
				if err != nil {
					return err
				}
				rows, _, err := enrichmap.BuildFDRTable(observed, population, permutations)
				if err != nil {
					return err
				}
				return enrichmap.WriteFDRTable(rows, c.String("out"))
			},
		},
		{
			Name:  "compare",
			Usage: "Compare the significant gene sets of two runs",
			UsageText: `
	enrichmap compare fdr_table_A.txt fdr_table_B.txt [options]

Compare function:
Load two empirical FDR tables, call gene sets significant at the --q cutoff,
and write the Venn partition (A only / B only / shared) plus a Fisher exact
test of the overlap against the union universe.
`,
			Flags: compareFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowSubcommandHelp(c)
					return cli.NewExitError("Must specify two FDR tables", 1)
				}
				banner("Run comparison")
				r := &enrichmap.Comparer{
					TableA:  c.Args().Get(0),
					TableB:  c.Args().Get(1),
					Outfile: c.String("out"),
					QCutoff: c.Float64("q"),
				}
				return r.Run()
			},
		},
		{
			Name:  "map",
			Usage: "Build, cluster and annotate the enrichment map in Cytoscape",
			UsageText: `
	enrichmap map ranks.rnk report.xls sets.gmt [options]

Map function:
Drive a running Cytoscape over CyREST: build an EnrichmentMap network from
the GSEA report and ranking, cluster it with clusterMaker2 MCL, and label the
clusters with AutoAnnotate. Cytoscape must be running with the three apps
installed; an unreachable service aborts with an actionable message.
`,
			Flags: mapFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 3 {
					cli.ShowSubcommandHelp(c)
					return cli.NewExitError("Must specify rnk, report and gmt files", 1)
				}
				banner("Enrichment map")
				r := &enrichmap.MapRunner{
					RnkFile:     c.Args().Get(0),
					ReportFile:  c.Args().Get(1),
					GmtFile:     c.Args().Get(2),
					NetworkName: c.String("name"),
					BaseURL:     c.String("url"),
					QValue:      c.Float64("q"),
				}
				return r.Run(context.Background())
			},
		},
		{
			Name:  "plot",
			Usage: "Render the FDR table (and one ES population) as HTML charts",
			UsageText: `
	enrichmap plot empirical_fdr.txt [options]

Plot function:
Render a NES vs empirical-FDR scatter of all tested gene sets, plus the
random ES histogram of one gene set when --set and --randdir are given.
With --serve the charts are hosted on localhost.
`,
			Flags: plotFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowSubcommandHelp(c)
					return cli.NewExitError("Must specify the FDR table", 1)
				}
				banner("Plotting")
				r := &enrichmap.Plotter{
					Tablefile:  c.Args().Get(0),
					Randdir:    c.String("randdir"),
					SetName:    c.String("set"),
					Iterations: c.Int("permutations"),
					Outdir:     c.String("out"),
					Serve:      c.Bool("serve"),
				}
				return r.Run()
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
