package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// ColumnDef describes one destination column. Name is unquoted; quoting
// happens when a backend renders the statement.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef is a backend-neutral table definition.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// TypeMapper maps a dataset column kind onto a backend SQL type.
type TypeMapper func(dataset.Kind) string

// TableFromDataset derives a table definition from the columns of ds. Every
// column is nullable since any cell may be missing.
func TableFromDataset(fqn string, ds *dataset.Dataset, mapType TypeMapper) (TableDef, error) {
	if strings.TrimSpace(fqn) == "" {
		return TableDef{}, fmt.Errorf("table name must not be empty")
	}
	if ds.NumCols() == 0 {
		return TableDef{}, fmt.Errorf("table %s: dataset has no columns", fqn)
	}
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, ds.NumCols())}
	for _, c := range ds.Columns() {
		td.Columns = append(td.Columns, ColumnDef{Name: c.Name(), SQLType: mapType(c.Kind()), Nullable: true})
	}
	return td, nil
}

// DDLBootstrapper creates the table described by td if it does not exist.
type DDLBootstrapper func(ctx context.Context, repo Repository, td TableDef) error

type dialect struct {
	mapType TypeMapper
	ensure  DDLBootstrapper
}

var (
	ddlMu    sync.RWMutex
	dialects = map[string]dialect{}
)

// RegisterDDL registers the type mapping and table bootstrapper of a kind.
func RegisterDDL(kind string, mapType TypeMapper, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = dialect{mapType: mapType, ensure: fn}
}

// EnsureTable creates table for ds through the bootstrapper registered for
// kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, ds *dataset.Dataset) error {
	ddlMu.RLock()
	d, ok := dialects[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	td, err := TableFromDataset(table, ds, d.mapType)
	if err != nil {
		return fmt.Errorf("infer table definition: %w", err)
	}
	if err := d.ensure(ctx, repo, td); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

// SplitFQN splits "schema.table" into its non-empty segments.
func SplitFQN(fqn string) []string {
	var out []string
	for _, p := range strings.Split(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
