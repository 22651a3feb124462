package filter

import (
	"fmt"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// Class is the derived classification of a column.
type Class int

const (
	Numeric Class = iota + 1
	Categorical
	FreeText
)

func (c Class) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case FreeText:
		return "free_text"
	}
	return "unknown"
}

// MarshalText lets Class render as its name in JSON responses.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText parses a name written by MarshalText.
func (c *Class) UnmarshalText(b []byte) error {
	switch string(b) {
	case "numeric":
		*c = Numeric
	case "categorical":
		*c = Categorical
	case "free_text":
		*c = FreeText
	default:
		return fmt.Errorf("unknown column class %q", b)
	}
	return nil
}

// Categorical columns have strictly more than one and strictly fewer than
// maxCategories distinct values.
const maxCategories = 20

// Classification is the result of Classify. Values is set only for
// Categorical and lists distinct non-missing values in first-seen order.
type Classification struct {
	Class  Class `json:"class"`
	Values []any `json:"values,omitempty"`
}

// Operators returns the operators a UI should offer for the class.
func (c Classification) Operators() []Op { return OperatorsFor(c.Class) }

// OperatorsFor returns the legal operator set for a class.
func OperatorsFor(c Class) []Op {
	switch c {
	case Numeric:
		return []Op{OpGT, OpLT, OpGE, OpLE, OpEQ, OpNE}
	case Categorical:
		return []Op{OpEQ, OpNE}
	default:
		return []Op{OpEQ, OpNE, OpContains}
	}
}

// Classify inspects column in ds. Int and float columns are Numeric. Other
// columns are Categorical when 1 < distinct < 20, FreeText otherwise.
func Classify(ds *dataset.Dataset, column string) (Classification, error) {
	c, ok := ds.Column(column)
	if !ok {
		return Classification{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	return classifyColumn(c), nil
}

func classifyColumn(c *dataset.Column) Classification {
	if c.Kind().Numeric() {
		return Classification{Class: Numeric}
	}
	distinct := c.Distinct()
	if n := len(distinct); n > 1 && n < maxCategories {
		return Classification{Class: Categorical, Values: distinct}
	}
	return Classification{Class: FreeText}
}
