// Package db provides database functionality for systemd-web.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Qian-MoBai/systemd-web/internal/log"

	// Register migrate's sqlite3 driver.
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"

	// Register sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// GetConnectionString returns the migrate connection string for dbPath.
func GetConnectionString(dbPath string) string {
	return "sqlite3://" + strings.TrimPrefix(dbPath, "sqlite3://")
}

// Connect opens the database at dbPath, creating its directory if needed.
func Connect(dbPath string, logger log.Logger) (*sql.DB, error) {
	// Remove sqlite3:// prefix if present for direct SQL connection
	dbPath = strings.TrimPrefix(dbPath, "sqlite3://")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Connected to database", "path", dbPath)

	return db, nil
}

// Up runs database migrations to latest version.
func Up(dbPath string, logger log.Logger) error {
	m, err := getMigrationInstance(dbPath, logger)
	if err != nil {
		return err
	}
	defer closeMigration(m, logger)

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("No new database migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		logger.Info("Database migrations applied successfully")
	}

	return nil
}

// Down rolls back all database migrations.
func Down(dbPath string, logger log.Logger) error {
	m, err := getMigrationInstance(dbPath, logger)
	if err != nil {
		return err
	}
	defer closeMigration(m, logger)

	err = m.Down()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("No database migrations to roll back")
	case err != nil:
		return fmt.Errorf("failed to roll back migrations: %w", err)
	default:
		logger.Info("Database migrations rolled back successfully")
	}

	return nil
}

func getMigrationInstance(dbPath string, logger log.Logger) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, GetConnectionString(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m.Log = &migrationLogger{logger: logger}

	return m, nil
}

func closeMigration(m *migrate.Migrate, logger log.Logger) {
	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		logger.Warn("Failed to close migration instance", "error", err)
	}
}

type migrationLogger struct {
	logger log.Logger
}

func (l *migrationLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug("Migration: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrationLogger) Verbose() bool {
	return true
}
