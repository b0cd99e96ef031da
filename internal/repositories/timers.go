package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/models/repositories"
)

// GetTimer returns the timer of a (case, stage) pair.
func (r *Repository) GetTimer(ctx context.Context, caseID, stage string) (*domain.StageTimer, error) {
	op := "Repository.GetTimer"

	var row repositories.StageTimerRow
	query := `SELECT case_id, stage, start_time, stop_time, elapsed_ms
		FROM stage_timers WHERE case_id = $1 AND stage = $2`
	if err := r.DB.GetContext(ctx, &row, query, caseID, stage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: timer %s/%s: %w", op, caseID, stage, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t := rowToTimer(row)
	return &t, nil
}

// SaveTimer upserts a stage timer.
func (r *Repository) SaveTimer(ctx context.Context, t *domain.StageTimer) error {
	op := "Repository.SaveTimer"

	query := `INSERT INTO stage_timers (case_id, stage, start_time, stop_time, elapsed_ms)
		VALUES (:case_id, :stage, :start_time, :stop_time, :elapsed_ms)
		ON CONFLICT (case_id, stage) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			stop_time = EXCLUDED.stop_time,
			elapsed_ms = EXCLUDED.elapsed_ms`
	if _, err := r.DB.NamedExecContext(ctx, query, timerToRow(t)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTimers returns the timers of a case ordered by start time.
func (r *Repository) ListTimers(ctx context.Context, caseID string) ([]domain.StageTimer, error) {
	op := "Repository.ListTimers"

	var rows []repositories.StageTimerRow
	query := `SELECT case_id, stage, start_time, stop_time, elapsed_ms
		FROM stage_timers WHERE case_id = $1
		ORDER BY start_time`
	if err := r.DB.SelectContext(ctx, &rows, query, caseID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	timers := make([]domain.StageTimer, 0, len(rows))
	for _, row := range rows {
		timers = append(timers, rowToTimer(row))
	}
	return timers, nil
}
