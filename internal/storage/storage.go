// Package storage publishes datasets into relational databases.
//
// Backends (sqlite, postgres, mssql, mysql) register a Factory and a table
// bootstrapper from init functions; importing storage/all enables all of
// them. Callers stay backend-agnostic: they open a Repository with New, make
// sure the destination table exists with EnsureTable and stream rows with
// LoadBatches, or do all three with Publisher.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind    string // "sqlite", "postgres", "mssql", "mysql"
	DSN     string
	Table   string   // target table, optionally schema-qualified
	Columns []string // ordered destination columns
}

// Repository is the minimal contract every backend implements.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and returns the number of
	// rows inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register associates a factory with a storage kind. Registering a kind again
// replaces the previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
