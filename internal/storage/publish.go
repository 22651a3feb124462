package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// DefaultBatchSize is used when Publisher.BatchSize is not set.
const DefaultBatchSize = 5000

// Publisher loads whole datasets into <TablePrefix><name> tables, creating
// them when absent.
type Publisher struct {
	Kind        string
	DSN         string
	TablePrefix string
	BatchSize   int
}

// Table returns the destination table for name.
func (p *Publisher) Table(name string) string { return p.TablePrefix + name }

// Publish opens a repository, ensures the table and copies every row of ds.
func (p *Publisher) Publish(ctx context.Context, name string, ds *dataset.Dataset) error {
	table := p.Table(name)
	repo, err := New(ctx, Config{Kind: p.Kind, DSN: p.DSN, Table: table, Columns: ds.Names()})
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Kind, err)
	}
	defer repo.Close()

	if err := EnsureTable(ctx, p.Kind, repo, table, ds); err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}

	batch := p.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	n, err := LoadBatches(ctx, ds.Names(), StreamRows(ctx, ds), batch, repo.CopyFrom)
	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	log.Printf("publish: kind=%s table=%s rows=%d", p.Kind, table, n)
	return nil
}
