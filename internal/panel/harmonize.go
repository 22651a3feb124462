package panel

import (
	"fmt"
	"log"
	"strings"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// IDColumn is the canonical identifier column name.
const IDColumn = "id"

// altIDColumn is the only other spelling accepted for the identifier.
const altIDColumn = "ID"

// HarmonizeID renames an "ID" column to "id" and converts identifier values
// to trimmed text. Integers render in decimal and floats without a trailing
// ".0"; missing identifiers stay missing. When both spellings exist, "id" is
// used and "ID" is left as an ordinary column.
func HarmonizeID(ds *dataset.Dataset) (*dataset.Dataset, error) {
	switch {
	case ds.Has(IDColumn):
		if ds.Has(altIDColumn) {
			log.Printf("warning: both %q and %q present; using %q", IDColumn, altIDColumn, IDColumn)
		}
	case ds.Has(altIDColumn):
		renamed, err := ds.Rename(map[string]string{altIDColumn: IDColumn})
		if err != nil {
			return nil, err
		}
		ds = renamed
	default:
		return nil, ErrMissingIdentifier
	}

	col, _ := ds.Column(IDColumn)
	vals := make([]any, col.Len())
	for i := range vals {
		v := col.Value(i)
		if v == nil {
			continue
		}
		vals[i] = strings.TrimSpace(dataset.FormatValue(v))
	}
	text, err := dataset.NewColumn(IDColumn, dataset.KindText, vals)
	if err != nil {
		return nil, fmt.Errorf("harmonize id: %w", err)
	}
	return ds.WithColumn(text.WithLabel(col.Label()))
}
