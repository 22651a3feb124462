// Command panel builds balanced multi-wave panels: it merges the domain
// files of every year on the participant identifier, keeps only the
// participants present in all years and writes one file per year.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/RC-CHN/CHARLS-FILTER/internal/config"
	"github.com/RC-CHN/CHARLS-FILTER/internal/metrics"
	"github.com/RC-CHN/CHARLS-FILTER/internal/metrics/datadog"
	"github.com/RC-CHN/CHARLS-FILTER/internal/metrics/prompush"

	// register all file formats and storage backends; the plan picks one.
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/fileio/all"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/storage/all"
)

func main() {
	var (
		planPath      string
		outDir        string
		baseDir       string
		format        string
		workers       int
		storageKind   string
		storageDSN    string
		metricsFlg    string
		pushGatewayFl string
		ddAddrFlg     string
		validate      bool
	)

	flag.StringVar(&planPath, "plan", "", "panel plan (.json, .yaml); built-in CHARLS 2013/2015/2018 plan when empty")
	flag.StringVar(&outDir, "out", "", "output directory (overrides env PANEL_OUTPUT_DIR and the plan)")
	flag.StringVar(&baseDir, "base-dir", "", "root for relative year directories (overrides env PANEL_BASE_DIR)")
	flag.StringVar(&format, "format", "", "output format: dta, csv, csv.gz, tsv, parquet")
	flag.IntVar(&workers, "workers", 0, "concurrent domain reads per year")
	flag.StringVar(&storageKind, "storage-kind", "", "publish panels to a database: sqlite, postgres, mssql, mysql")
	flag.StringVar(&storageDSN, "storage-dsn", "", "database DSN for -storage-kind")
	flag.StringVar(&metricsFlg, "metrics", "", "metrics backend: pushgateway, datadog, none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayFl, "pushgateway", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&ddAddrFlg, "dd-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the plan and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	p := config.DefaultPanel()
	if planPath != "" {
		var err error
		if p, err = config.Load(planPath); err != nil {
			fatalf("load plan: %v", err)
		}
	}
	applyOverrides(&p, overrides{
		OutputDir:   firstNonEmpty(outDir, os.Getenv("PANEL_OUTPUT_DIR")),
		Root:        firstNonEmpty(baseDir, os.Getenv("PANEL_BASE_DIR")),
		Format:      format,
		Workers:     workers,
		StorageKind: storageKind,
		StorageDSN:  storageDSN,
	})

	issues := config.ValidatePanel(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("plan is invalid: %v", firstNonEmpty(planPath, "<built-in>"))
		os.Exit(1)
	}
	if validate {
		log.Printf("plan is valid: %v", firstNonEmpty(planPath, "<built-in>"))
		os.Exit(0)
	}
	if err := configureInputs(p.Input); err != nil {
		fatalf("input options: %v", err)
	}

	// Decide metrics backend: flag → env → none.
	backendName := firstNonEmpty(metricsFlg, os.Getenv("METRICS_BACKEND"))
	switch backendName {
	case "pushgateway":
		gwURL := firstNonEmpty(pushGatewayFl, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err := prompush.NewBackend(p.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			break
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, p.Job)
		metrics.SetBackend(b)
	case "datadog":
		addr := firstNonEmpty(ddAddrFlg, os.Getenv("DD_AGENT_ADDR"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "charls.", GlobalTags: []string{"job:" + p.Job}})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			break
		}
		log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
		metrics.SetBackend(b)
	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := newRunner(p)
	if *verbose {
		log.Printf("panel: job=%s years=%d out=%s format=%s storage=%q workers=%d",
			p.Job, len(r.Years), r.OutputDir, p.Output.Format, p.Storage.Kind, r.LoadWorkers)
	}

	sum, err := r.Run(ctx)
	if ferr := metrics.Flush(); ferr != nil {
		log.Printf("metrics: flush error: %v", ferr)
	}
	if sum != nil {
		printSummary(os.Stdout, sum)
	}
	if err != nil {
		fatalf("panel: %v", err)
	}
	if *verbose {
		log.Printf("completed in %s; %s common participants", sum.Elapsed.Truncate(time.Millisecond), humanize.Comma(int64(sum.Common)))
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
