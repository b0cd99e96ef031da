package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/models/repositories"
)

const caseColumns = `id, status, current_stage, stage_statuses, customer, vehicle, vin,
	inspection_id, quote, payment, pickup, version, created_at, updated_at`

// CreateCase inserts a new case with version 1.
func (r *Repository) CreateCase(ctx context.Context, c *domain.Case) error {
	op := "Repository.CreateCase"

	c.Version = 1
	row, err := caseToRow(c)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO cases (` + caseColumns + `)
		VALUES (:id, :status, :current_stage, :stage_statuses, :customer, :vehicle, :vin,
			:inspection_id, :quote, :payment, :pickup, :version, :created_at, :updated_at)`
	if _, err := r.DB.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadCase returns a case by ID.
func (r *Repository) LoadCase(ctx context.Context, id string) (*domain.Case, error) {
	op := "Repository.LoadCase"

	var row repositories.CaseRow
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	if err := r.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: case %s: %w", op, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := rowToCase(&row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// SaveCase updates a case if the stored version still matches c.Version,
// then bumps c.Version.
func (r *Repository) SaveCase(ctx context.Context, c *domain.Case) error {
	op := "Repository.SaveCase"

	row, err := caseToRow(c)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE cases SET
			status = :status,
			current_stage = :current_stage,
			stage_statuses = :stage_statuses,
			customer = :customer,
			vehicle = :vehicle,
			vin = :vin,
			inspection_id = :inspection_id,
			quote = :quote,
			payment = :payment,
			pickup = :pickup,
			updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version`
	res, err := r.DB.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		var exists bool
		if err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM cases WHERE id = $1)`, c.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: case %s: %w", op, c.ID, domain.ErrNotFound)
		}
		r.log.Warn("stale case write rejected",
			slog.String("op", op),
			slog.String("caseID", c.ID),
			slog.Int64("version", c.Version))
		return fmt.Errorf("%s: case %s at version %d: %w", op, c.ID, c.Version, ErrVersionConflict)
	}

	c.Version++
	return nil
}

// ListCasesByStatus returns cases with the given status, newest first.
func (r *Repository) ListCasesByStatus(ctx context.Context, status domain.CaseStatus, limit int) ([]domain.Case, error) {
	op := "Repository.ListCasesByStatus"

	var rows []repositories.CaseRow
	query := `SELECT ` + caseColumns + ` FROM cases WHERE status = $1
		ORDER BY updated_at DESC LIMIT $2`
	if err := r.DB.SelectContext(ctx, &rows, query, string(status), limit); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.Case, 0, len(rows))
	for i := range rows {
		c, err := rowToCase(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *c)
	}
	return out, nil
}
