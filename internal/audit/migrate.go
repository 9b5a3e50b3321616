// Schema migrations for the audit database. SQLite only: this store
// never runs against a shared relational service, only a local
// per-instance file.
package audit

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	_ "github.com/glebarez/sqlite" // registers the "sqlite" database/sql driver

	"codesandbox/internal/errs"
)

// MigrationRunner applies the versioned SQL migrations under
// internal/audit/migrations against the audit database at dbPath.
type MigrationRunner struct {
	db      *sql.DB
	migrate *migrate.Migrate
}

// NewMigrationRunner opens dbPath and prepares the migrate.Migrate
// instance. migrationsPath defaults to the migrations/ directory
// alongside this file when empty.
func NewMigrationRunner(dbPath, migrationsPath string) (*MigrationRunner, error) {
	if migrationsPath == "" {
		_, filename, _, _ := runtime.Caller(0)
		migrationsPath = filepath.Join(filepath.Dir(filename), "migrations")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errs.Wrap(errs.KindSystem, err, "open audit sqlite connection for migration")
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindSystem, err, "create sqlite migration driver")
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "sqlite3", driver)
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindSystem, err, "create migrate instance")
	}

	return &MigrationRunner{db: db, migrate: m}, nil
}

// Up applies every pending migration. ErrNoChange is not an error here:
// a freshly-migrated database is the expected steady state.
func (r *MigrationRunner) Up() error {
	if err := r.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.Wrap(errs.KindSystem, err, "apply audit migrations")
	}
	return nil
}

// Version reports the current schema version and dirty flag.
func (r *MigrationRunner) Version() (version uint, dirty bool, err error) {
	version, dirty, err = r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the migration source and database handle.
func (r *MigrationRunner) Close() error {
	srcErr, dbErr := r.migrate.Close()
	if srcErr != nil {
		return errs.Wrap(errs.KindSystem, srcErr, "close migration source")
	}
	if dbErr != nil {
		return errs.Wrap(errs.KindSystem, dbErr, "close migration database")
	}
	return nil
}
