package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// CopyFn is a backend's bulk insert: rows are aligned to columns and the
// number of rows written is returned.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// batcher accumulates rows and hands full batches to copy.
type batcher struct {
	columns []string
	size    int
	copy    CopyFn

	pending [][]any
	total   int64
	flushes int
	started time.Time
}

func (b *batcher) add(ctx context.Context, row []any) error {
	b.pending = append(b.pending, row)
	if len(b.pending) < b.size {
		return nil
	}
	return b.flush(ctx)
}

// flush copies pending rows. The slice is never reused because backends may
// retain it until the copy returns.
func (b *batcher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	rows := b.pending
	b.pending = make([][]any, 0, b.size)

	n, err := b.copy(ctx, b.columns, rows)
	b.total += n
	if err != nil {
		log.Printf("loader: batch=%d rows=%d copied=%d err=%v", b.flushes+1, len(rows), n, err)
		return err
	}
	b.flushes++
	elapsed := time.Since(b.started)
	log.Printf("loader: batch=%d rows=%d total=%d rate=%.0f/s elapsed=%s",
		b.flushes, n, b.total, float64(b.total)/elapsed.Seconds(), elapsed.Truncate(time.Millisecond))
	return nil
}

// LoadBatches drains in into batches of batchSize and copies each one. It
// returns the rows copied so far together with the first error.
func LoadBatches(ctx context.Context, columns []string, in <-chan []any, batchSize int, copyFn CopyFn) (int64, error) {
	switch {
	case batchSize <= 0:
		return 0, errors.New("loader: batch size must be positive")
	case copyFn == nil:
		return 0, errors.New("loader: nil copy function")
	}
	b := &batcher{columns: columns, size: batchSize, copy: copyFn, started: time.Now()}
	for {
		select {
		case <-ctx.Done():
			return b.total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				return b.total, b.flush(ctx)
			}
			if err := b.add(ctx, row); err != nil {
				return b.total, err
			}
		}
	}
}

// StreamRows emits the rows of ds in order and closes the channel at the end
// or on cancellation.
func StreamRows(ctx context.Context, ds *dataset.Dataset) <-chan []any {
	out := make(chan []any, 256)
	go func() {
		defer close(out)
		for i, n := 0, ds.NumRows(); i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case out <- ds.Row(i):
			}
		}
	}()
	return out
}
