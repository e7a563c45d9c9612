// Package database owns the daemon's SQLite file: opening it with the
// right pragmas, migrating its schema and probing its health.
//
// The history repository is the only consumer. Its access pattern, one
// writer goroutine plus occasional list queries from the API, shapes
// the configuration here: WAL mode so reads never wait on the
// recorder, a busy timeout instead of retry loops, and a pool pinned
// to one connection because SQLite serialises writers anyway.
//
// Migrations are plain SQL files embedded into the binary by the
// top-level migrations package (MigrationsFS / MigrationsDir). Each
// runs once, inside its own transaction, tracked in
// schema_migrations. They are additive only: new tables and nullable
// columns, never drops or renames, so an old binary can still open a
// newer file.
//
//	db, err := database.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
