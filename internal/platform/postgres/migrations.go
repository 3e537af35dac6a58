package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

// MigrationsDir is the directory of Migrations that holds the goose files.
const MigrationsDir = "migrations"

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

// Migrations holds the goose SQL migrations for the schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationCommands are the goose commands RunMigrations accepts.
var MigrationCommands = []string{"up", "up-by-one", "down", "redo", "reset", "status", "version"}

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// RunMigrations runs a goose command against db using the embedded
// migrations. Output goes to log.
func RunMigrations(ctx context.Context, db *sql.DB, command string, log *slog.Logger, args ...string) error {
	if log == nil {
		log = slog.Default()
	}
	if !validMigrationCommand(command) {
		return fmt.Errorf("unknown migration command %q", command)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(Migrations)
	goose.SetTableName(MigrationTableName)
	goose.SetLogger(&slogGooseLogger{log: log.With(slog.String("component", "migrations"))})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, MigrationsDir, args...); err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}

// CreateMigration writes a new empty SQL migration named name into dir.
func CreateMigration(dir, name string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if name == "" {
		return fmt.Errorf("migration name is required")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(nil)
	goose.SetLogger(&slogGooseLogger{log: log.With(slog.String("component", "migrations"))})
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration %q: %w", name, err)
	}
	return nil
}

func validMigrationCommand(command string) bool {
	for _, c := range MigrationCommands {
		if c == command {
			return true
		}
	}
	return false
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	log *slog.Logger
}

// Printf forwards goose progress output at INFO.
func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs at ERROR. It does not exit; goose also returns the error.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}
