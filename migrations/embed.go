// Package migrations compiles the schema migration SQL into the
// binary, so a lamp deploys as a single executable with no files to
// ship alongside it.
//
// The blank import from main is what pulls this in; the init below
// hands the embedded filesystem to the database package.
package migrations

import (
	"embed"

	"github.com/lumen-labs/lumen-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "." // the embed root is this directory
}
