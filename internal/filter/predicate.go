package filter

import (
	"fmt"
	"strings"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// Predicate is a row filter that can be applied to a dataset and described in
// a session history.
type Predicate interface {
	Apply(*dataset.Dataset) (*dataset.Dataset, int, error)
	String() string
}

// NotMissing keeps rows with a value in every listed column.
type NotMissing struct {
	Columns []string
}

func (p NotMissing) Apply(ds *dataset.Dataset) (*dataset.Dataset, int, error) {
	return DropIncomplete(ds, p.Columns)
}

func (p NotMissing) String() string {
	return fmt.Sprintf("dropna(%s)", strings.Join(p.Columns, ", "))
}

// Condition keeps rows where Column Op Value holds.
type Condition struct {
	Column string
	Op     Op
	Value  string
}

func (p Condition) Apply(ds *dataset.Dataset) (*dataset.Dataset, int, error) {
	return ApplyCondition(ds, p.Column, p.Op, p.Value)
}

func (p Condition) String() string {
	return fmt.Sprintf("%s %s %q", p.Column, p.Op, p.Value)
}

// Chain applies predicates in order. The removed count is the total over all
// steps; the first error aborts the chain and nothing is returned.
type Chain []Predicate

func (c Chain) Apply(ds *dataset.Dataset) (*dataset.Dataset, int, error) {
	out, total := ds, 0
	for _, p := range c {
		if p == nil {
			continue
		}
		next, removed, err := p.Apply(out)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", p, err)
		}
		out, total = next, total+removed
	}
	return out, total, nil
}

func (c Chain) String() string {
	parts := make([]string, 0, len(c))
	for _, p := range c {
		if p != nil {
			parts = append(parts, p.String())
		}
	}
	return strings.Join(parts, " && ")
}
