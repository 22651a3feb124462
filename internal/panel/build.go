package panel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/metrics"
)

// Runner builds one panel file per year.
type Runner struct {
	Job       string
	Years     []Year
	OutputDir string
	// Prefix and Ext name the outputs: <OutputDir>/<Prefix><year><Ext>.
	Prefix string
	Ext    string
	// LoadWorkers bounds concurrent domain reads per year.
	LoadWorkers int

	Read    ReadFunc
	Write   WriteFunc
	Publish PublishFunc
}

// YearSummary reports what happened to one year.
type YearSummary struct {
	Year        string   `json:"year"`
	Loaded      []string `json:"loaded"`
	Skipped     []Skip   `json:"skipped,omitempty"`
	LoadedRows  int      `json:"loaded_rows"`
	MergedRows  int      `json:"merged_rows"`
	PanelRows   int      `json:"panel_rows"`
	Output      string   `json:"output,omitempty"`
	Fingerprint uint64   `json:"fingerprint,omitempty"`
}

// Summary is the outcome of a run.
type Summary struct {
	Years   []YearSummary `json:"years"`
	Common  int           `json:"common"`
	Elapsed time.Duration `json:"elapsed"`
}

// OutputPath returns the file a year's panel is written to.
func (r *Runner) OutputPath(year string) string {
	ext := r.Ext
	if ext == "" {
		ext = ".dta"
	}
	return filepath.Join(r.OutputDir, r.Prefix+year+ext)
}

// Run merges every year concurrently, intersects the identifiers and writes
// the panels. Nothing is written unless every year merged and the
// intersection is non-empty. The returned summary is filled as far as the run
// got, also on error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Years: make([]YearSummary, len(r.Years))}
	defer func() { sum.Elapsed = time.Since(start) }()

	if len(r.Years) == 0 {
		return sum, errors.New("panel: no years configured")
	}
	write := r.Write
	if write == nil {
		write = writeFn
	}

	results := make([]*YearResult, len(r.Years))
	stepStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, y := range r.Years {
		i, y := i, y
		sum.Years[i].Year = y.Label
		g.Go(func() error {
			res, err := MergeYear(gctx, y, r.Read, r.LoadWorkers)
			if res != nil {
				results[i] = res
			}
			return err
		})
	}
	err := g.Wait()
	for i, res := range results {
		if res == nil {
			continue
		}
		ys := &sum.Years[i]
		ys.Loaded, ys.Skipped, ys.LoadedRows = res.Loaded, res.Skipped, res.LoadedRows
		for range res.Loaded {
			metrics.RecordDomain(r.Job, res.Year, "loaded")
		}
		for range res.Skipped {
			metrics.RecordDomain(r.Job, res.Year, "skipped")
		}
		metrics.RecordRows(r.Job, "loaded", int64(res.LoadedRows))
		if res.Data != nil {
			ys.MergedRows = res.Data.NumRows()
			metrics.RecordRows(r.Job, "merged", int64(ys.MergedRows))
		}
	}
	metrics.RecordStep(r.Job, "merge", err, time.Since(stepStart))
	if err != nil {
		return sum, err
	}

	waves := make([]Wave, len(results))
	for i, res := range results {
		waves[i] = Wave{Year: res.Year, Data: res.Data}
	}
	stepStart = time.Now()
	panels, common, err := Intersect(waves)
	metrics.RecordStep(r.Job, "intersect", err, time.Since(stepStart))
	if err != nil {
		return sum, err
	}
	sum.Common = common
	log.Printf("intersect: years=%d common=%d", len(panels), common)

	stepStart = time.Now()
	err = r.writeAll(ctx, write, panels, sum)
	metrics.RecordStep(r.Job, "write", err, time.Since(stepStart))
	if err != nil {
		return sum, err
	}

	if r.Publish != nil {
		stepStart = time.Now()
		err = r.publishAll(ctx, panels)
		metrics.RecordStep(r.Job, "publish", err, time.Since(stepStart))
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (r *Runner) writeAll(ctx context.Context, write WriteFunc, panels []Wave, sum *Summary) error {
	if r.OutputDir != "" {
		if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	for i, p := range panels {
		path := r.OutputPath(p.Year)
		if err := write(ctx, p.Data, path); err != nil {
			return fmt.Errorf("write year %s: %w", p.Year, err)
		}
		ys := &sum.Years[i]
		ys.PanelRows = p.Data.NumRows()
		ys.Output = path
		ys.Fingerprint = p.Data.Fingerprint()
		metrics.RecordRows(r.Job, "panel", int64(ys.PanelRows))
		log.Printf("write: year=%s rows=%d cols=%d path=%s fingerprint=%016x", p.Year, ys.PanelRows, p.Data.NumCols(), path, ys.Fingerprint)
	}
	return nil
}

func (r *Runner) publishAll(ctx context.Context, panels []Wave) error {
	for _, p := range panels {
		if err := r.Publish(ctx, p.Year, p.Data); err != nil {
			return fmt.Errorf("publish year %s: %w", p.Year, err)
		}
	}
	return nil
}

// Panels runs merge and intersection without writing anything. It is the
// in-memory form of Run used by callers that want the datasets themselves.
func Panels(ctx context.Context, years []Year, read ReadFunc, workers int) (map[string]*dataset.Dataset, error) {
	waves := make([]Wave, 0, len(years))
	for _, y := range years {
		res, err := MergeYear(ctx, y, read, workers)
		if err != nil {
			return nil, err
		}
		waves = append(waves, Wave{Year: y.Label, Data: res.Data})
	}
	out, _, err := Intersect(waves)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*dataset.Dataset, len(out))
	for _, w := range out {
		m[w.Year] = w.Data
	}
	return m, nil
}
