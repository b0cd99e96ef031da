package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/models/repositories"
)

// LoadInspection returns an inspection by ID.
func (r *Repository) LoadInspection(ctx context.Context, id string) (*domain.Inspection, error) {
	op := "Repository.LoadInspection"

	var row repositories.InspectionRow
	query := `SELECT id, case_id, status, vehicle_type, inspector_id, scheduled_at,
		answers, sections, overall_rating, rubric_version, completed_at,
		created_at, updated_at
		FROM inspections WHERE id = $1`
	if err := r.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: inspection %s: %w", op, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	insp, err := rowToInspection(&row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return insp, nil
}

// SaveInspection inserts or replaces an inspection.
func (r *Repository) SaveInspection(ctx context.Context, insp *domain.Inspection) error {
	op := "Repository.SaveInspection"

	row, err := inspectionToRow(insp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO inspections (id, case_id, status, vehicle_type, inspector_id,
			scheduled_at, answers, sections, overall_rating, rubric_version, completed_at,
			created_at, updated_at)
		VALUES (:id, :case_id, :status, :vehicle_type, :inspector_id,
			:scheduled_at, :answers, :sections, :overall_rating, :rubric_version, :completed_at,
			:created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			inspector_id = EXCLUDED.inspector_id,
			scheduled_at = EXCLUDED.scheduled_at,
			answers = EXCLUDED.answers,
			sections = EXCLUDED.sections,
			overall_rating = EXCLUDED.overall_rating,
			rubric_version = EXCLUDED.rubric_version,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.DB.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
