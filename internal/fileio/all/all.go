// Package all registers every file codec. Import it for side effects.
package all

import (
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/fileio/csv"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/fileio/dta"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/fileio/parquetfile"
)
