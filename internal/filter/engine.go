package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RC-CHN/CHARLS-FILTER/internal/bitmap"
	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// DropIncomplete keeps the rows that have a value in every named column.
// It fails with ErrInvalidColumnSelection when columns is empty and with
// ErrUnknownColumn when a name does not exist.
func DropIncomplete(ds *dataset.Dataset, columns []string) (*dataset.Dataset, int, error) {
	if len(columns) == 0 {
		return nil, 0, fmt.Errorf("%w: no columns selected", ErrInvalidColumnSelection)
	}
	cols := make([]*dataset.Column, 0, len(columns))
	for _, name := range columns {
		c, ok := ds.Column(name)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		cols = append(cols, c)
	}

	n := ds.NumRows()
	mask := bitmap.New(n)
	for r := 0; r < n; r++ {
		keep := true
		for _, c := range cols {
			if c.IsMissing(r) {
				keep = false
				break
			}
		}
		if keep {
			mask.Add(r)
		}
	}
	return ds.Keep(mask), n - mask.Count(), nil
}

// ApplyCondition keeps the rows whose value in column satisfies op against
// raw. raw is coerced to the column's kind first: numeric columns require a
// number (ErrTypeCoercion otherwise), "contains" requires a text or
// categorical column, and ordering operators are rejected on categorical
// columns. Rows with a missing value never match.
func ApplyCondition(ds *dataset.Dataset, column string, op Op, raw string) (*dataset.Dataset, int, error) {
	c, ok := ds.Column(column)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	match, err := matcher(c, op, raw)
	if err != nil {
		return nil, 0, err
	}

	n := ds.NumRows()
	mask := bitmap.New(n)
	for r := 0; r < n; r++ {
		v := c.Value(r)
		if v != nil && match(v) {
			mask.Add(r)
		}
	}
	return ds.Keep(mask), n - mask.Count(), nil
}

func matcher(c *dataset.Column, op Op, raw string) (func(any) bool, error) {
	if _, err := ParseOp(string(op)); err != nil {
		return nil, err
	}
	switch c.Kind() {
	case dataset.KindInt, dataset.KindFloat:
		if op == OpContains {
			return nil, fmt.Errorf("%w: %q on %s column %q", ErrUnsupportedOperator, op, c.Kind(), c.Name())
		}
		return numericMatcher(c, op, raw)
	case dataset.KindCategorical:
		if op.ordering() {
			return nil, fmt.Errorf("%w: %q on categorical column %q", ErrUnsupportedOperator, op, c.Name())
		}
		return textMatcher(op, raw), nil
	default:
		return textMatcher(op, raw), nil
	}
}

func numericMatcher(c *dataset.Column, op Op, raw string) (func(any) bool, error) {
	s := strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %q is not a number for column %q", ErrTypeCoercion, raw, c.Name())
	}
	// Exact integer comparison when both sides are integral.
	if c.Kind() == dataset.KindInt {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return func(v any) bool { return cmpOK(op, cmpInt(v.(int64), i)) }, nil
		}
		return func(v any) bool { return cmpOK(op, cmpFloat(float64(v.(int64)), f)) }, nil
	}
	return func(v any) bool { return cmpOK(op, cmpFloat(v.(float64), f)) }, nil
}

func textMatcher(op Op, raw string) func(any) bool {
	if op == OpContains {
		return func(v any) bool { return strings.Contains(v.(string), raw) }
	}
	return func(v any) bool { return cmpOK(op, strings.Compare(v.(string), raw)) }
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpOK(op Op, c int) bool {
	switch op {
	case OpGT:
		return c > 0
	case OpLT:
		return c < 0
	case OpGE:
		return c >= 0
	case OpLE:
		return c <= 0
	case OpEQ:
		return c == 0
	case OpNE:
		return c != 0
	}
	return false
}
