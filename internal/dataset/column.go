package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared type of a column.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindFloat
	KindText
	KindCategorical
)

// String returns the lower-case kind name used in configs, logs and DDL mapping.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Numeric reports whether the kind is integer or floating-point.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Textual reports whether the kind holds strings (text or categorical).
func (k Kind) Textual() bool { return k == KindText || k == KindCategorical }

// ParseKind maps a loosely-specified kind name onto a Kind. The mapping is
// case-insensitive and accepts the usual aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "int64", "long":
		return KindInt, nil
	case "float", "double", "float64", "number":
		return KindFloat, nil
	case "text", "string", "str":
		return KindText, nil
	case "categorical", "category", "cat":
		return KindCategorical, nil
	default:
		return 0, fmt.Errorf("unknown column kind %q", s)
	}
}

// Column is an immutable, named, typed sequence of values. A nil value is the
// missing-value marker. Non-missing values are int64 (KindInt), float64
// (KindFloat) or string (KindText, KindCategorical).
type Column struct {
	name   string
	kind   Kind
	label  string
	levels []string
	values []any
}

// NewColumn validates and copies values into a new column. Common Go numeric
// types are widened (int, int32 → int64; float32 → float64) and NaN floats are
// stored as missing.
func NewColumn(name string, kind Kind, values []any) (*Column, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("column name must not be empty")
	}
	switch kind {
	case KindInt, KindFloat, KindText, KindCategorical:
	default:
		return nil, fmt.Errorf("column %q: unsupported kind %v", name, kind)
	}

	out := make([]any, len(values))
	for i, v := range values {
		nv, err := normalizeValue(kind, v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = nv
	}
	return &Column{name: name, kind: kind, values: out}, nil
}

// MustColumn is like NewColumn but panics on error. It is meant for fixtures
// and statically known columns.
func MustColumn(name string, kind Kind, values ...any) *Column {
	c, err := NewColumn(name, kind, values)
	if err != nil {
		panic(err)
	}
	return c
}

func normalizeValue(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int8:
			return int64(n), nil
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			if math.IsNaN(n) {
				return nil, nil
			}
			return n, nil
		case float32:
			if math.IsNaN(float64(n)) {
				return nil, nil
			}
			return float64(n), nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
	case KindText, KindCategorical:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %T for %s column", ErrInvalidValue, v, kind)
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the declared kind.
func (c *Column) Kind() Kind { return c.kind }

// Label returns the optional descriptive label (e.g. a Stata variable label).
func (c *Column) Label() string { return c.label }

// Levels returns a copy of the ordered category levels of a categorical
// column. It is empty when no explicit levels were attached.
func (c *Column) Levels() []string { return append([]string(nil), c.levels...) }

// Len returns the number of rows.
func (c *Column) Len() int { return len(c.values) }

// Value returns the value at row i; nil means missing.
func (c *Column) Value(i int) any { return c.values[i] }

// IsMissing reports whether row i holds the missing-value marker.
func (c *Column) IsMissing(i int) bool { return c.values[i] == nil }

// Values returns a copy of all values.
func (c *Column) Values() []any { return append([]any(nil), c.values...) }

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.values {
		if v == nil {
			n++
		}
	}
	return n
}

// Distinct returns the distinct non-missing values in order of first
// appearance.
func (c *Column) Distinct() []any {
	seen := make(map[any]struct{})
	var out []any
	for _, v := range c.values {
		if v == nil {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// WithName returns a copy of the column under a new name. Values are shared;
// columns are never mutated after construction.
func (c *Column) WithName(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

// WithLabel returns a copy of the column carrying label.
func (c *Column) WithLabel(label string) *Column {
	cp := *c
	cp.label = label
	return &cp
}

// WithLevels returns a copy of a categorical column with ordered levels.
func (c *Column) WithLevels(levels []string) *Column {
	cp := *c
	cp.levels = append([]string(nil), levels...)
	return &cp
}

func (c *Column) take(rows []int) *Column {
	vals := make([]any, len(rows))
	for i, r := range rows {
		if r < 0 {
			continue
		}
		vals[i] = c.values[r]
	}
	cp := *c
	cp.values = vals
	return &cp
}

func (c *Column) clone() *Column {
	cp := *c
	cp.values = append([]any(nil), c.values...)
	cp.levels = append([]string(nil), c.levels...)
	return &cp
}

// FormatValue renders a cell for text outputs: missing is "", integers are
// decimal, floats use the shortest representation that round-trips.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
