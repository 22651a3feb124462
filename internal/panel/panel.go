// Package panel builds longitudinal panels from yearly survey extracts.
//
// For each year the domain files are loaded, their identifier column is
// harmonised to trimmed text under the name "id", and the domains are
// left-joined in plan order (first-loaded column wins on name collision).
// The merged years are then restricted to the participants present in every
// year.
//
// Errors:
//   - ErrMissingIdentifier: a domain has no id/ID column; the domain is
//     skipped, the year continues.
//   - ErrYearFailed: no domain of a year survived loading.
//   - ErrNoCommonParticipants: the identifier intersection across years is
//     empty.
package panel

import (
	"context"
	"errors"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
)

var (
	ErrMissingIdentifier    = errors.New("missing identifier column")
	ErrYearFailed           = errors.New("no usable domains")
	ErrNoCommonParticipants = errors.New("no common participants across years")
)

// Domain is one per-topic extract of a survey year.
type Domain struct {
	Name string
	Path string
}

// Year lists the domains of one survey wave in processing order.
type Year struct {
	Label   string
	Domains []Domain
}

// ReadFunc loads a dataset from path.
type ReadFunc func(ctx context.Context, path string) (*dataset.Dataset, error)

// WriteFunc stores a dataset at path.
type WriteFunc func(ctx context.Context, ds *dataset.Dataset, path string) error

// PublishFunc hands a finished panel to an optional sink such as a database.
type PublishFunc func(ctx context.Context, year string, ds *dataset.Dataset) error

var (
	readFn  ReadFunc  = fileio.Read
	writeFn WriteFunc = fileio.Write
)
