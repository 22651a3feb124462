package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/RC-CHN/CHARLS-FILTER/internal/config"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio/csv"
	"github.com/RC-CHN/CHARLS-FILTER/internal/panel"
	"github.com/RC-CHN/CHARLS-FILTER/internal/storage"
)

// overrides are command-line and environment values layered over the plan.
// Zero values leave the plan untouched.
type overrides struct {
	OutputDir   string
	Root        string
	Format      string
	Workers     int
	StorageKind string
	StorageDSN  string
}

func applyOverrides(p *config.Panel, o overrides) {
	if o.OutputDir != "" {
		p.Output.Dir = o.OutputDir
	}
	if o.Root != "" {
		p.Root = o.Root
	}
	if o.Format != "" {
		p.Output.Format = o.Format
	}
	if o.Workers > 0 {
		p.Runtime.LoadWorkers = o.Workers
	}
	if o.StorageKind != "" {
		p.Storage.Kind = o.StorageKind
	}
	if o.StorageDSN != "" {
		p.Storage.DSN = o.StorageDSN
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// configureInputs re-registers the delimited-text codecs with the plan's
// input options. Nothing changes when opts is empty.
func configureInputs(opts config.Options) error {
	if len(opts) == 0 {
		return nil
	}
	enc := opts.String("encoding", "")
	if _, err := csv.LookupEncoding(enc); err != nil {
		return err
	}
	na := opts.StringSlice("na_values")
	fileio.Register(".csv", csv.New(csv.Options{Comma: opts.Rune("comma", ','), Encoding: enc, NATokens: na}))
	fileio.Register(".csv.gz", csv.New(csv.Options{Comma: opts.Rune("comma", ','), Encoding: enc, NATokens: na, Gzip: true}))
	fileio.Register(".tsv", csv.New(csv.Options{Comma: '\t', Encoding: enc, NATokens: na}))
	return nil
}

// newRunner translates a validated plan into a panel.Runner.
func newRunner(p config.Panel) *panel.Runner {
	r := &panel.Runner{
		Job:         p.Job,
		OutputDir:   p.Output.Dir,
		Prefix:      p.Output.Prefix,
		Ext:         p.OutputExt(),
		LoadWorkers: p.Runtime.LoadWorkers,
	}
	for _, y := range p.Years {
		py := panel.Year{Label: y.Year}
		for _, d := range y.Domains {
			py.Domains = append(py.Domains, panel.Domain{Name: d.Name, Path: p.DomainPath(y, d)})
		}
		r.Years = append(r.Years, py)
	}
	if p.Storage.Kind != "" {
		pub := &storage.Publisher{
			Kind:        p.Storage.Kind,
			DSN:         p.Storage.DSN,
			TablePrefix: p.Storage.TablePrefix,
			BatchSize:   p.Storage.BatchSize,
		}
		r.Publish = pub.Publish
	}
	return r
}

func printSummary(w io.Writer, sum *panel.Summary) {
	for _, y := range sum.Years {
		if y.Year == "" {
			continue
		}
		fmt.Fprintf(w, "%s: loaded=%s rows=%s merged=%s panel=%s",
			y.Year, strings.Join(y.Loaded, ","), humanize.Comma(int64(y.LoadedRows)),
			humanize.Comma(int64(y.MergedRows)), humanize.Comma(int64(y.PanelRows)))
		if y.Output != "" {
			fmt.Fprintf(w, " -> %s", y.Output)
		}
		fmt.Fprintln(w)
		for _, s := range y.Skipped {
			fmt.Fprintf(w, "  skipped %s (%s): %s\n", s.Domain, s.Path, s.Reason)
		}
	}
	fmt.Fprintf(w, "common participants: %s (%s)\n", humanize.Comma(int64(sum.Common)), sum.Elapsed.Round(time.Millisecond))
}
