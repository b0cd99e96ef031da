package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"CaseLifecycle/internal/config"
	"CaseLifecycle/internal/migrator"
	"CaseLifecycle/internal/utils/logger/sl"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrVersionConflict is returned when a case was modified since it was loaded.
var ErrVersionConflict = errors.New("case version conflict")

// Repository is the Postgres store for cases, inspections and stage timers.
type Repository struct {
	DB  *sqlx.DB
	log *slog.Logger
}

// New connects to the database and applies pending migrations.
func New(logger *slog.Logger, cfg *config.Config) (*Repository, error) {
	op := "repositories.New"
	log := logger.With(slog.String("op", op))

	db := cfg.DBConfig
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s sslmode=disable password=%s search_path=%s",
		db.Host, db.Port, db.User, db.Name, db.Password, db.Schema)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Error("error connecting to database", sl.Err(err))
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}
	log.Debug("sqlx connected to database", slog.String("host", db.Host), slog.String("schema", db.Schema))

	if err := migrator.NewMigrator(conn, logger, db.Schema).Run(); err != nil {
		log.Error("error running database migrations", sl.Err(err))
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithDB(logger, conn), nil
}

// NewWithDB wraps an already opened connection.
func NewWithDB(logger *slog.Logger, conn *sqlx.DB) *Repository {
	return &Repository{
		DB:  conn,
		log: logger.With(slog.String("component", "repository")),
	}
}

// Shutdown closes the database connection.
func (r *Repository) Shutdown(ctx context.Context) error {
	op := "Repository.Shutdown"
	done := make(chan error, 1)
	go func() { done <- r.DB.Close() }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit %s: %w", op, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error exit %s: %w", op, err)
		}
		r.log.Info("database connection closed", slog.String("op", op))
		return nil
	}
}
