// Package all enables every built-in storage backend. Import it for side
// effects from a wiring layer such as cmd/panel:
//
//	import _ "github.com/RC-CHN/CHARLS-FILTER/internal/storage/all"
package all

import (
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/storage/mssql"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/storage/mysql"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/storage/postgres"
	_ "github.com/RC-CHN/CHARLS-FILTER/internal/storage/sqlite"
)
