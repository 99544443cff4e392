// Package all registers every summary store backend. Blank-import it
// from the binary so Config.Kind can select any of them.
package all

import (
	_ "dataprof/internal/storage/mssql"
	_ "dataprof/internal/storage/postgres"
	_ "dataprof/internal/storage/sqlite"
)
