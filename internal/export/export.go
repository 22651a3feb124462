// Package export renames columns for output and hands the result to the file
// writer registry.
package export

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
)

// DefaultExt is appended to export paths without an extension.
const DefaultExt = ".csv"

var writeFn = fileio.Write

// Project applies rename (old name → new name) to a copy of ds. Targets that
// are empty after trimming leave the column unchanged, as do old names that
// are not columns of ds. A rename that produces two columns with the same name
// fails with dataset.ErrDuplicateColumnName.
func Project(ds *dataset.Dataset, rename map[string]string) (*dataset.Dataset, error) {
	clean := make(map[string]string, len(rename))
	for from, to := range rename {
		to = strings.TrimSpace(to)
		if to == "" || !ds.Has(from) {
			continue
		}
		clean[from] = to
	}
	if len(clean) == 0 {
		return ds.Clone(), nil
	}
	out, err := ds.Rename(clean)
	if err != nil {
		return nil, fmt.Errorf("rename columns: %w", err)
	}
	return out, nil
}

// Export projects ds and writes it to path, returning the path actually
// written. The file format follows the extension; a path without one gets
// DefaultExt.
func Export(ctx context.Context, ds *dataset.Dataset, rename map[string]string, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("export: empty path")
	}
	if filepath.Ext(path) == "" {
		path += DefaultExt
	}
	out, err := Project(ds, rename)
	if err != nil {
		return "", err
	}
	if err := writeFn(ctx, out, path); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	log.Printf("export: rows=%d cols=%d path=%s", out.NumRows(), out.NumCols(), path)
	return path, nil
}
