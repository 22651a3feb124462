// Package mssql implements a SQL Server repository on go-mssqldb. Rows are
// loaded with the driver's bulk copy API.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, connects and returns a close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// CopyFrom bulk-inserts rows into the configured table inside one
// transaction. The table lock keeps a panel load minimally logged.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (n int64, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			n = 0
		}
	}()

	opts := mssql.BulkOptions{Tablock: true, RowsPerBatch: len(rows)}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.Table, opts, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk copy into %s: %w", r.cfg.Table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("mssql: queue row %d: %w", i, err)
		}
	}
	// An argument-less Exec sends the queued rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk copy: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

// Exec runs a statement.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.db.ExecContext(ctx, sql)
	return err
}

// MapType maps a column kind onto a SQL Server type.
func MapType(k dataset.Kind) string {
	switch k {
	case dataset.KindInt:
		return "BIGINT"
	case dataset.KindFloat:
		return "FLOAT"
	default:
		return "NVARCHAR(MAX)"
	}
}

// BuildCreateTableSQL renders a guarded CREATE TABLE for td.
func BuildCreateTableSQL(td storage.TableDef) (string, error) {
	if strings.TrimSpace(td.FQN) == "" {
		return "", fmt.Errorf("mssql ddl: table FQN must not be empty")
	}
	if len(td.Columns) == 0 {
		return "", fmt.Errorf("mssql ddl: at least one column is required")
	}
	cols := make([]string, 0, len(td.Columns))
	for _, c := range td.Columns {
		null := " NULL"
		if !c.Nullable {
			null = " NOT NULL"
		}
		cols = append(cols, msIdent(c.Name)+" "+c.SQLType+null)
	}
	fqn := msFQN(td.FQN)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n  %s\n);",
		strings.ReplaceAll(fqn, "'", "''"), fqn, strings.Join(cols, ",\n  "),
	), nil
}

// msIdent brackets an identifier, escaping closing brackets.
func msIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func msFQN(name string) string {
	parts := storage.SplitFQN(name)
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}
