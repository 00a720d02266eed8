// Package database provides SQLite connectivity for the panel's
// metrics store.
//
// It owns the connection (WAL mode, busy timeout, a single pooled
// conn matching SQLite's single-writer model) and the embedded schema
// migrations. The metrics schema is additive-only: new columns are
// nullable or carry defaults, and every migration ships an .up.sql and
// a .down.sql.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// All queries use parameterised statements, and the database file is
// chmod'd owner-only after creation.
package database
