package panel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// Skip reasons reported in YearResult.Skipped.
const (
	ReasonNotFound   = "file not found"
	ReasonReadFailed = "read failed"
	ReasonNoID       = "missing identifier"
)

// Skip describes a domain that did not take part in a merge.
type Skip struct {
	Domain string `json:"domain"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (s Skip) String() string { return fmt.Sprintf("%s (%s): %v", s.Domain, s.Reason, s.Err) }

// YearResult is the merged dataset of one year plus per-domain bookkeeping.
type YearResult struct {
	Year    string
	Data    *dataset.Dataset
	Loaded  []string
	Skipped []Skip
	// LoadedRows is the total row count of the loaded domains before joining.
	LoadedRows int
}

type loadResult struct {
	ds   *dataset.Dataset
	skip *Skip
}

// MergeYear loads the domains of y with up to workers concurrent reads, then
// joins the survivors in plan order on the harmonised identifier. Per-domain
// failures are logged and skipped. A year with no surviving domain fails with
// ErrYearFailed. A nil read uses the fileio registry.
func MergeYear(ctx context.Context, y Year, read ReadFunc, workers int) (*YearResult, error) {
	if read == nil {
		read = readFn
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]loadResult, len(y.Domains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range y.Domains {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = loadDomain(gctx, read, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &YearResult{Year: y.Label}
	var merged *dataset.Dataset
	for i, r := range results {
		d := y.Domains[i]
		if r.skip != nil {
			log.Printf("warning: year=%s domain=%s skipped: %s: %v", y.Label, d.Name, r.skip.Reason, r.skip.Err)
			res.Skipped = append(res.Skipped, *r.skip)
			continue
		}
		log.Printf("merge: year=%s domain=%s rows=%d cols=%d", y.Label, d.Name, r.ds.NumRows(), r.ds.NumCols())
		res.Loaded = append(res.Loaded, d.Name)
		res.LoadedRows += r.ds.NumRows()
		if merged == nil {
			merged = r.ds
			continue
		}
		joined, err := LeftJoin(merged, r.ds, IDColumn)
		if err != nil {
			return nil, fmt.Errorf("year %s: join %s: %w", y.Label, d.Name, err)
		}
		merged = joined
	}
	if merged == nil {
		return res, fmt.Errorf("year %s: %w", y.Label, ErrYearFailed)
	}
	res.Data = merged
	return res, nil
}

func loadDomain(ctx context.Context, read ReadFunc, d Domain) loadResult {
	ds, err := read(ctx, d.Path)
	if err != nil {
		reason := ReasonReadFailed
		if errors.Is(err, fs.ErrNotExist) {
			reason = ReasonNotFound
		}
		return loadResult{skip: &Skip{Domain: d.Name, Path: d.Path, Reason: reason, Err: err}}
	}
	ds, err = HarmonizeID(ds)
	if err != nil {
		reason := ReasonReadFailed
		if errors.Is(err, ErrMissingIdentifier) {
			reason = ReasonNoID
		}
		return loadResult{skip: &Skip{Domain: d.Name, Path: d.Path, Reason: reason, Err: err}}
	}
	return loadResult{ds: ds}
}
