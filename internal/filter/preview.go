package filter

import (
	"fmt"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// DefaultPreviewRows is the number of head values returned when the caller
// passes n <= 0.
const DefaultPreviewRows = 20

// ColumnPreview summarises one column for display.
type ColumnPreview struct {
	Name      string         `json:"name"`
	Kind      string         `json:"kind"`
	Label     string         `json:"label,omitempty"`
	Rows      int            `json:"rows"`
	Missing   int            `json:"missing"`
	Distinct  int            `json:"distinct"`
	Head      []any          `json:"head"`
	Class     Classification `json:"classification"`
	Operators []Op           `json:"operators"`
}

// Preview returns the first n values of column plus its counts and
// classification.
func Preview(ds *dataset.Dataset, column string, n int) (ColumnPreview, error) {
	c, ok := ds.Column(column)
	if !ok {
		return ColumnPreview{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if n <= 0 {
		n = DefaultPreviewRows
	}
	if n > c.Len() {
		n = c.Len()
	}
	head := make([]any, n)
	for i := 0; i < n; i++ {
		head[i] = c.Value(i)
	}
	cls := classifyColumn(c)
	return ColumnPreview{
		Name:      c.Name(),
		Kind:      c.Kind().String(),
		Label:     c.Label(),
		Rows:      c.Len(),
		Missing:   c.MissingCount(),
		Distinct:  len(c.Distinct()),
		Head:      head,
		Class:     cls,
		Operators: cls.Operators(),
	}, nil
}
