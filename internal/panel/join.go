package panel

import (
	"fmt"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// LeftJoin keeps every row of left, in order, and appends the columns of
// right that left does not already have. Rows are matched on key; a left row
// with a missing or unmatched key gets missing values for the new columns,
// and a key that occurs k times in right repeats the left row k times.
func LeftJoin(left, right *dataset.Dataset, key string) (*dataset.Dataset, error) {
	lk, ok := left.Column(key)
	if !ok {
		return nil, fmt.Errorf("left: %w %q", ErrMissingIdentifier, key)
	}
	rk, ok := right.Column(key)
	if !ok {
		return nil, fmt.Errorf("right: %w %q", ErrMissingIdentifier, key)
	}

	var extra []string
	for _, name := range right.Names() {
		if name != key && !left.Has(name) {
			extra = append(extra, name)
		}
	}

	index := make(map[any][]int, rk.Len())
	for j := 0; j < rk.Len(); j++ {
		if v := rk.Value(j); v != nil {
			index[v] = append(index[v], j)
		}
	}

	leftRows := make([]int, 0, lk.Len())
	rightRows := make([]int, 0, lk.Len())
	for i := 0; i < lk.Len(); i++ {
		matches := index[lk.Value(i)]
		if lk.IsMissing(i) || len(matches) == 0 {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, -1)
			continue
		}
		for _, j := range matches {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	out := left.Take(leftRows)
	if len(extra) == 0 {
		return out, nil
	}
	add, err := right.Select(extra...)
	if err != nil {
		return nil, err
	}
	return out.AddColumns(add.Take(rightRows).Columns()...)
}
