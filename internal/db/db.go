// Package db persists drive logs and computed similarity runs in
// sqlite. Schema changes ship as embedded migrations applied at
// startup.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/corrdash/corrdash/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the sqlite handle.
type DB struct {
	*sql.DB
	path string
}

// New opens (creating if needed) the sqlite database at path and
// applies any pending migrations.
func New(path string) (*DB, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", path, err)
	}
	if _, err := sdb.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("db: enabling foreign keys: %w", err)
	}

	db := &DB{DB: sdb, path: path}
	if err := db.migrateUp(); err != nil {
		sdb.Close()
		return nil, err
	}
	return db, nil
}

// migrateUp applies all pending embedded migrations. Already-current
// databases are a no-op.
func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("db: loading embedded migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("db: creating sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("db: creating migrate instance: %w", err)
	}
	// Closing m would close the underlying DB connection, so it is left
	// to be garbage collected.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migration up failed: %w", err)
	}
	return nil
}

// AttachDebugger mounts the tailsql live SQL browser and a backup
// endpoint under /debug/ on the given mux. Debug-only surface, no auth.
func (db *DB) AttachDebugger(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("db: creating tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Drive DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create an on-disk backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		monitoring.Logf("database backed up to %s", backupPath)
		fmt.Fprintf(w, "backup written to %s\n", backupPath)
	}))
	return nil
}
