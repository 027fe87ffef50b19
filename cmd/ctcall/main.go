// ctcall interprets one plate's Ct values with a panel's rules and writes one
// tab-delimited row per well and channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/qpcr"
	"github.com/carbocation/qpcr/analysis"
	"github.com/carbocation/qpcr/archive"
	"github.com/carbocation/qpcr/compileinfo"
	"github.com/carbocation/qpcr/ingest"
	"github.com/carbocation/qpcr/report"
	"github.com/carbocation/qpcr/rules"
	"github.com/carbocation/qpcr/samples"
)

func main() {
	compileinfo.Fprint(os.Stderr)

	var wellsPath, panelName, panelDir, rulesPath, casesPath, outPath, summaryPath, archivePath string

	flag.StringVar(&wellsPath, "wells", "", "Well list (CSV/TSV, optionally compressed). May be a Google Storage URL (gs://).")
	flag.StringVar(&panelName, "panel", "default", "Name of the panel to load from -panel-dir. Ignored if -rules is set.")
	flag.StringVar(&panelDir, "panel-dir", "", "Folder holding panel JSON documents. Defaults to ./panels next to this binary.")
	flag.StringVar(&rulesPath, "rules", "", "(Optional) Rule table (CSV/TSV/XLS) to use instead of a stored panel.")
	flag.StringVar(&casesPath, "cases", "", "(Optional) Case sheet with SampleName, CaseID and PatientID columns.")
	flag.StringVar(&outPath, "out", "", "(Optional) Output file. Defaults to STDOUT.")
	flag.StringVar(&summaryPath, "summary", "", "(Optional) File to write a per-target summary to.")
	flag.StringVar(&archivePath, "archive", "", "(Optional) SQLite file in which to archive this run.")
	flag.Parse()

	if wellsPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	var client *storage.Client
	if anyGS(wellsPath, rulesPath, casesPath) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	panel, err := loadPanel(ctx, client, panelName, panelDir, rulesPath)
	if err != nil {
		log.Fatalln(err)
	}

	if err := run(ctx, client, panel, wellsPath, casesPath, outPath, summaryPath, archivePath); err != nil {
		log.Fatalln(err)
	}
}

func anyGS(paths ...string) bool {
	for _, p := range paths {
		if strings.HasPrefix(p, "gs://") {
			return true
		}
	}
	return false
}

func loadPanel(ctx context.Context, client *storage.Client, name, dir, rulesPath string) (*rules.Panel, error) {
	if rulesPath != "" {
		data, err := qpcr.ReadAll(ctx, rulesPath, client)
		if err != nil {
			return nil, pfx.Err(err)
		}
		rows, err := ingest.ReadRules(data)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", rulesPath, err))
		}
		log.Printf("Read %d rules from %s\n", len(rows), rulesPath)

		return rules.FromTable(strings.TrimSuffix(filepath.Base(rulesPath), filepath.Ext(rulesPath)), rows), nil
	}

	if dir == "" {
		var err error
		if dir, err = qpcr.DefaultPanelDir(); err != nil {
			return nil, err
		}
	}

	return rules.NewStore(qpcr.ExpandHome(dir)).Load(name)
}

func run(ctx context.Context, client *storage.Client, panel *rules.Panel, wellsPath, casesPath, outPath, summaryPath, archivePath string) error {
	data, err := qpcr.ReadAll(ctx, wellsPath, client)
	if err != nil {
		return pfx.Err(err)
	}
	wells, err := ingest.ReadWells(data)
	if err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", wellsPath, err))
	}
	log.Printf("Read %d well readings from %s\n", len(wells), wellsPath)

	mapper := samples.NewMapper(nil)
	if casesPath != "" {
		data, err := qpcr.ReadAll(ctx, casesPath, client)
		if err != nil {
			return pfx.Err(err)
		}
		cases, err := ingest.ReadCases(data)
		if err != nil {
			return pfx.Err(fmt.Errorf("%s: %w", casesPath, err))
		}
		mapper = samples.NewMapper(cases)
	}

	engine := analysis.New(panel)
	log.Printf("Analyzing with panel %s (version %s, %d rules)\n", panel.Name, panel.Version, engine.RuleCount())

	results, err := engine.Analyze(ctx, wells)
	if err != nil {
		return pfx.Err(err)
	}

	groups := mapper.Group(wells, results)
	results = samples.Annotate(results, groups)

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return pfx.Err(err)
		}
		defer f.Close()
		out = f
	}

	if err := report.WriteResults(out, results); err != nil {
		return err
	}

	if summaryPath != "" {
		f, err := os.Create(summaryPath)
		if err != nil {
			return pfx.Err(err)
		}
		defer f.Close()

		if err := report.WriteSummary(f, report.Summarize(results)); err != nil {
			return err
		}
	}

	if archivePath != "" {
		a, err := archive.Open(qpcr.ExpandHome(archivePath))
		if err != nil {
			return err
		}
		defer a.Close()

		runInfo, err := archive.NewRun(panel, wellsPath)
		if err != nil {
			return err
		}

		id, err := a.Record(ctx, runInfo, results)
		if err != nil {
			return err
		}
		log.Printf("Archived as run %d in %s\n", id, archivePath)
	}

	log.Printf("Wrote %d results for %d samples\n", len(results), len(groups))

	return nil
}
