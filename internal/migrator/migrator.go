package migrator

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations in file name order.
type Migrator struct {
	db     *sqlx.DB
	log    *slog.Logger
	schema string
	files  fs.FS
}

// NewMigrator creates a migrator for the given schema.
func NewMigrator(db *sqlx.DB, logger *slog.Logger, schema string) *Migrator {
	return &Migrator{
		db:     db,
		log:    logger.With(slog.String("component", "migrator"), slog.String("schema", schema)),
		schema: schema,
		files:  migrationsFS,
	}
}

// Run applies every migration that has not been recorded yet.
func (m *Migrator) Run() error {
	return m.RunContext(context.Background())
}

// RunContext is Run with a caller supplied context.
func (m *Migrator) RunContext(ctx context.Context) error {
	op := "migrator.Run"
	m.log.Info("starting database migrations")

	if err := m.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("%s: create schema_migrations: %w", op, err)
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, version := range pending {
		if err := m.apply(ctx, version); err != nil {
			return fmt.Errorf("%s: migration %s: %w", op, version, err)
		}
	}

	m.log.Info("database migrations completed", slog.Int("applied", len(pending)))
	return nil
}

// Versions lists the embedded migration versions in order.
func (m *Migrator) Versions() ([]string, error) {
	entries, err := fs.ReadDir(m.files, "migrations")
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(entry.Name(), ".sql"))
	}
	slices.Sort(versions)
	return versions, nil
}

// Pending lists embedded migrations not yet recorded as applied.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	versions, err := m.Versions()
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var applied []string
	query := fmt.Sprintf(`SELECT version FROM %s.schema_migrations`, m.schema)
	if err := m.db.SelectContext(ctx, &applied, query); err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	return slices.DeleteFunc(versions, func(v string) bool {
		return slices.Contains(applied, v)
	}), nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, m.schema)); err != nil {
		return err
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, m.schema)
	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *Migrator) apply(ctx context.Context, version string) (err error) {
	content, err := fs.ReadFile(m.files, "migrations/"+version+".sql")
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	m.log.Info("applying migration", slog.String("version", version))

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", m.schema)); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	if _, err = tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s.schema_migrations (version) VALUES ($1)`, m.schema), version); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	m.log.Info("migration applied", slog.String("version", version))
	return nil
}
