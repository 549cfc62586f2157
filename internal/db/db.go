package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/op-bracket/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLite writers take the database lock when the transaction begins, so a
// result submission never upgrades a read lock halfway through.
const sqliteParams = "_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?" + sqliteParams
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	slog.Info("database connected", "driver", driver)
	return db, nil
}

// RunMigrations applies the embedded schema for the database's driver.
func RunMigrations(db *sqlx.DB) error {
	var (
		source fs.FS
		dir    string
		driver database.Driver
		err    error
	)

	switch db.DriverName() {
	case DriverSQLite:
		source, dir = migrations.SQLite, "sqlite"
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	case DriverPostgres:
		source, dir = migrations.Postgres, "postgres"
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", db.DriverName())
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	src, err := iofs.New(source, dir)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	// Closing the migrate instance would close db as well, so it is left open.
	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
