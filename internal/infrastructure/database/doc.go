// Package database provides the SQLite connection used for sensor history.
//
// Open configures WAL mode, a busy timeout and a single-writer pool. Migrate
// applies numbered up-migrations from any fs.FS, normally the embedded
// migrations package:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. Migrations are additive; each runs in its own
// transaction and is recorded in schema_migrations.
package database
