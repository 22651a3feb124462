// Package filter implements the row filter engine and the column type
// classifier.
//
// Every operation is pure: it receives a *dataset.Dataset, builds a row mask
// in a single pass and returns a new Dataset together with the number of rows
// removed. The input is never modified, so a failed filter leaves the caller's
// data exactly as it was.
//
// Missing cells never satisfy a condition, including "!=". This mirrors
// null-propagating comparison: a conditional filter always drops rows whose
// target cell is missing.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidColumnSelection is returned when the column selection is empty
	// or names a column that does not exist.
	ErrInvalidColumnSelection = errors.New("invalid column selection")
	// ErrUnknownColumn is a specific ErrInvalidColumnSelection.
	ErrUnknownColumn = fmt.Errorf("%w: unknown column", ErrInvalidColumnSelection)
	// ErrTypeCoercion is returned when a literal cannot be converted to the
	// column's type.
	ErrTypeCoercion = errors.New("type coercion failed")
	// ErrUnsupportedOperator is returned for unknown operators and for
	// operators that are not legal for the column's kind.
	ErrUnsupportedOperator = errors.New("unsupported operator")
)

// Op is a comparison operator.
type Op string

const (
	OpGT       Op = ">"
	OpLT       Op = "<"
	OpGE       Op = ">="
	OpLE       Op = "<="
	OpEQ       Op = "=="
	OpNE       Op = "!="
	OpContains Op = "contains"
)

var allOps = []Op{OpGT, OpLT, OpGE, OpLE, OpEQ, OpNE, OpContains}

// ParseOp validates an operator token. Surrounding whitespace is ignored and
// "contains" is matched case-insensitively.
func ParseOp(s string) (Op, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(OpContains)) {
		return OpContains, nil
	}
	for _, op := range allOps {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, s)
}

func (o Op) ordering() bool {
	return o == OpGT || o == OpLT || o == OpGE || o == OpLE
}
