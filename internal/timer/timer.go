package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CaseLifecycle/internal/models/domain"
)

// Store persists stage timers keyed by (case, stage).
type Store interface {
	// GetTimer returns domain.ErrNotFound when no timer exists.
	GetTimer(ctx context.Context, caseID, stage string) (*domain.StageTimer, error)
	SaveTimer(ctx context.Context, t *domain.StageTimer) error
	ListTimers(ctx context.Context, caseID string) ([]domain.StageTimer, error)
}

// Service measures working time per (case, stage). Start and Stop are
// idempotent so a retried call never double-counts elapsed time.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// New creates a new timer service.
func New(logger *slog.Logger, store Store) *Service {
	return &Service{
		store: store,
		log:   logger.With(slog.String("component", "timer")),
		now:   time.Now,
	}
}

// WithClock replaces the time source, mainly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start begins or resumes the timer. A timer that is already running is
// returned unchanged. A stopped timer resumes and keeps its accumulated time.
func (s *Service) Start(ctx context.Context, caseID, stage string) (*domain.StageTimer, error) {
	op := "timer.Start"

	t, err := s.store.GetTimer(ctx, caseID, stage)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		t = &domain.StageTimer{CaseID: caseID, Stage: stage}
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	case t.Running():
		return t, nil
	}

	t.StartTime = s.now().UTC()
	t.StopTime = nil
	if err := s.store.SaveTimer(ctx, t); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("timer started",
		slog.String("op", op),
		slog.String("caseID", caseID),
		slog.String("stage", stage),
		slog.Int64("priorElapsedMs", t.ElapsedMs))
	return t, nil
}

// Stop halts the timer and adds the running interval to the cumulative total.
// Stopping a stopped timer returns the last result; stopping an unknown timer
// returns a zero result.
func (s *Service) Stop(ctx context.Context, caseID, stage string) (domain.StopResult, error) {
	op := "timer.Stop"

	t, err := s.store.GetTimer(ctx, caseID, stage)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.StopResult{}, nil
	}
	if err != nil {
		return domain.StopResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if !t.Running() {
		return result(t), nil
	}

	stoppedAt := s.now().UTC()
	if stoppedAt.Before(t.StartTime) {
		stoppedAt = t.StartTime
	}
	t.ElapsedMs += stoppedAt.Sub(t.StartTime).Milliseconds()
	t.StopTime = &stoppedAt

	if err := s.store.SaveTimer(ctx, t); err != nil {
		return domain.StopResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("timer stopped",
		slog.String("op", op),
		slog.String("caseID", caseID),
		slog.String("stage", stage),
		slog.Int64("elapsedMs", t.ElapsedMs))
	return result(t), nil
}

// List returns every timer recorded for a case.
func (s *Service) List(ctx context.Context, caseID string) ([]domain.StageTimer, error) {
	op := "timer.List"
	timers, err := s.store.ListTimers(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return timers, nil
}

// Elapsed returns the cumulative time of t as of now, including a running interval.
func Elapsed(t domain.StageTimer, now time.Time) time.Duration {
	d := time.Duration(t.ElapsedMs) * time.Millisecond
	if t.Running() && now.After(t.StartTime) {
		d += now.Sub(t.StartTime)
	}
	return d
}

func result(t *domain.StageTimer) domain.StopResult {
	res := domain.StopResult{
		ElapsedMs: t.ElapsedMs,
		StartedAt: t.StartTime,
	}
	if t.StopTime != nil {
		res.StoppedAt = *t.StopTime
	}
	return res
}
