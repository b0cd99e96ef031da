package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/notify"
	"CaseLifecycle/internal/scoring"
	"CaseLifecycle/internal/stages"
	"CaseLifecycle/internal/timer"
	"CaseLifecycle/internal/utils/logger/sl"

	"github.com/google/uuid"
)

// Store is the persistence collaborator for cases and inspections.
type Store interface {
	CreateCase(ctx context.Context, c *domain.Case) error
	// LoadCase returns domain.ErrNotFound for an unknown id.
	LoadCase(ctx context.Context, id string) (*domain.Case, error)
	// SaveCase writes c if its Version matches the stored one and bumps it.
	SaveCase(ctx context.Context, c *domain.Case) error
	ListCasesByStatus(ctx context.Context, status domain.CaseStatus, limit int) ([]domain.Case, error)
	LoadInspection(ctx context.Context, id string) (*domain.Inspection, error)
	SaveInspection(ctx context.Context, insp *domain.Inspection) error
}

// Service is the case orchestrator: the single entry point the host
// application calls. Callers serialise writes per case id.
type Service struct {
	store    Store
	scoring  *scoring.Engine
	timers   *timer.Service
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
}

// New creates a new case orchestrator.
func New(
	logger *slog.Logger,
	store Store,
	scoringEngine *scoring.Engine,
	timers *timer.Service,
	notifier notify.Notifier,
) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		store:    store,
		scoring:  scoringEngine,
		timers:   timers,
		notifier: notifier,
		log:      logger.With(slog.String("component", "cases")),
		now:      time.Now,
	}
}

// WithClock replaces the time source, mainly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithNotifier replaces the event sink. It must be called before the
// service is shared between goroutines.
func (s *Service) WithNotifier(n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	s.notifier = n
	return s
}

// IntakeInput is the data captured when a seller first contacts us.
type IntakeInput struct {
	Customer domain.Customer
	Vehicle  domain.Vehicle
}

// InspectionSchedule assigns an inspector and a time slot.
type InspectionSchedule struct {
	InspectorID string
	ScheduledAt time.Time
}

// StageOutputs carries the data a stage produces when it is completed.
// Only the fields relevant to the completed stage are applied.
type StageOutputs struct {
	Customer       *domain.Customer
	Vehicle        *domain.Vehicle
	Inspection     *InspectionSchedule
	AcceptedAmount *float64
	Payment        *domain.Payment
	Pickup         *domain.Pickup
}

// OpenCase creates a case at the intake stage and starts its intake timer.
func (s *Service) OpenCase(ctx context.Context, in IntakeInput) (*domain.Case, error) {
	op := "cases.OpenCase"
	log := s.log.With(slog.String("op", op))

	if in.Vehicle.Type != "" && !in.Vehicle.Type.Valid() {
		return nil, domain.UnknownVehicleType(in.Vehicle.Type)
	}

	now := s.now().UTC()
	c := stages.Open(domain.Case{
		ID:        uuid.NewString(),
		Customer:  in.Customer,
		Vehicle:   in.Vehicle,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := s.store.CreateCase(ctx, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.timers.Start(ctx, c.ID, stages.First.String()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("case opened", slog.String("caseID", c.ID), slog.String("vin", c.Vehicle.VIN))
	s.notify(ctx, notify.Event{
		Kind:       notify.EventCaseOpened,
		CaseID:     c.ID,
		Stage:      c.CurrentStage.String(),
		Status:     string(c.Status),
		Customer:   c.Customer.Name,
		VIN:        c.Vehicle.VIN,
		OccurredAt: now,
	})
	return &c, nil
}

// GetCase loads a case.
func (s *Service) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	op := "cases.GetCase"
	c, err := s.store.LoadCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// DefaultListLimit caps ListCases when no limit is given.
const DefaultListLimit = 20

// ListCases returns the most recently updated cases in a status.
func (s *Service) ListCases(ctx context.Context, status domain.CaseStatus, limit int) ([]domain.Case, error) {
	op := "cases.ListCases"
	if !status.Valid() {
		return nil, fmt.Errorf("%s: unknown status %q", op, status)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	list, err := s.store.ListCasesByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// GetInspection loads the inspection attached to a case.
func (s *Service) GetInspection(ctx context.Context, caseID string) (*domain.Inspection, error) {
	op := "cases.GetInspection"
	c, err := s.store.LoadCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	insp, err := s.loadInspection(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if insp == nil {
		return nil, fmt.Errorf("%s: inspection: %w", op, domain.ErrNotFound)
	}
	return insp, nil
}

// PendingQuestions lists the required questions that still block inspection completion.
func (s *Service) PendingQuestions(ctx context.Context, caseID string) ([]string, error) {
	op := "cases.PendingQuestions"
	insp, err := s.GetInspection(ctx, caseID)
	if err != nil {
		return nil, err
	}
	missing, err := s.scoring.Missing(insp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return missing, nil
}

// Question looks up a question in the rubric of the case's inspection.
func (s *Service) Question(ctx context.Context, caseID, questionID string) (*domain.Question, error) {
	op := "cases.Question"
	insp, err := s.GetInspection(ctx, caseID)
	if err != nil {
		return nil, err
	}
	r, err := s.scoring.Rubric(insp.VehicleType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	q, _, ok := r.Question(questionID)
	if !ok {
		return nil, &domain.Error{
			Kind:        domain.KindUnknownQuestion,
			CaseID:      caseID,
			QuestionIDs: []string{questionID},
			Reason:      fmt.Sprintf("not part of the %s rubric", r.VehicleType),
		}
	}
	out := *q
	return &out, nil
}

// Timers lists the stage timers of a case.
func (s *Service) Timers(ctx context.Context, caseID string) ([]domain.StageTimer, error) {
	return s.timers.List(ctx, caseID)
}

// OfferQuote records the amount offered to the customer during the quote stage.
func (s *Service) OfferQuote(ctx context.Context, caseID string, amount float64) (*domain.Case, error) {
	op := "cases.OfferQuote"

	c, err := s.store.LoadCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stages.IsTerminal(*c) || c.CurrentStage != domain.StageQuote {
		return nil, domain.InvalidTransition(c.ID, domain.StageQuote, "quotes are offered during the quote stage")
	}
	if amount <= 0 {
		return nil, domain.InvalidTransition(c.ID, domain.StageQuote, "quote amount must be positive")
	}
	if c.Quote != nil && c.Quote.Amount == amount {
		return c, nil
	}

	work := c.Clone()
	if work.Quote == nil {
		work.Quote = &domain.Quote{}
	}
	work.Quote.Amount = amount
	work.UpdatedAt = s.now().UTC()
	if err := s.store.SaveCase(ctx, &work); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &work, nil
}

// SaveAnswers stores inspection answers after validating them against the
// rubric. The first saved answer moves the inspection to in-progress.
func (s *Service) SaveAnswers(ctx context.Context, caseID string, answers map[string]domain.Answer) (*domain.Inspection, error) {
	op := "cases.SaveAnswers"
	log := s.log.With(slog.String("op", op), slog.String("caseID", caseID))

	c, err := s.store.LoadCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stages.IsTerminal(*c) {
		return nil, &domain.Error{Kind: domain.KindInspectionLocked, CaseID: c.ID,
			Reason: "case is closed as " + string(c.Status)}
	}
	insp, err := s.loadInspection(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if insp == nil {
		return nil, domain.InvalidTransition(c.ID, domain.StageInspection, "inspection has not been scheduled")
	}
	if !insp.Status.IsEditable() {
		return nil, &domain.Error{Kind: domain.KindInspectionLocked, CaseID: c.ID,
			Reason: "inspection is completed"}
	}

	r, err := s.scoring.Rubric(insp.VehicleType)
	if err != nil {
		return nil, err
	}
	if err := scoring.ValidateAnswers(r, answers); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			de.CaseID = c.ID
		}
		return nil, reject(log, err)
	}

	work := insp.Clone()
	set := make(map[string]domain.Answer, len(answers))
	for id, a := range answers {
		if scoring.IsEmpty(a) {
			delete(work.Answers, id)
			continue
		}
		set[id] = a
	}
	work.MergeAnswers(set)
	if len(work.Answers) > 0 && work.Status.CanTransitionTo(domain.InspectionInProgress) {
		work.Status = domain.InspectionInProgress
	}
	work.UpdatedAt = s.now().UTC()

	if err := s.store.SaveInspection(ctx, &work); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("answers saved",
		slog.Int("received", len(answers)),
		slog.Int("total", len(work.Answers)),
		slog.String("status", string(work.Status)))
	return &work, nil
}

// CompleteStage validates and completes the current stage, stops its timer,
// advances the case and starts the next stage's timer. Completing a stage that
// is already complete returns the stored case without side effects, provided
// out repeats what the stage stored.
func (s *Service) CompleteStage(ctx context.Context, caseID string, stage domain.Stage, out StageOutputs) (*domain.Case, error) {
	op := "cases.CompleteStage"
	log := s.log.With(slog.String("op", op), slog.String("caseID", caseID), slog.String("stage", stage.String()))

	c, err := s.store.LoadCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stage.Valid() && c.StatusOf(stage) == domain.StageStatusComplete && c.Status != domain.CaseStatusQuoteDeclined {
		var insp *domain.Inspection
		if stage == domain.StageScheduleInspection {
			if insp, err = s.loadInspection(ctx, c); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		if !sameOutputs(c, insp, stage, out) {
			return nil, reject(log, domain.InvalidTransition(c.ID, stage, "stage is already complete with different data"))
		}
		log.Debug("stage already complete")
		if err := s.resumeActiveTimer(ctx, c); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return c, nil
	}

	now := s.now().UTC()
	work := c.Clone()
	insp, err := s.loadInspection(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inspChanged, err := s.applyOutputs(&work, &insp, stage, out, now)
	if err != nil {
		return nil, reject(log, err)
	}

	if stage == domain.StageInspection && work.CurrentStage == stage &&
		insp != nil && insp.Status.CanTransitionTo(domain.InspectionCompleted) {
		res, err := s.scoring.Compute(insp)
		if err != nil {
			var de *domain.Error
			if errors.As(err, &de) {
				de.CaseID = c.ID
				de.Stage = &stage
			}
			return nil, reject(log, err)
		}
		frozen := insp.Clone()
		frozen.Sections = res.Sections
		frozen.OverallRating = &res.OverallRating
		frozen.RubricVersion = res.RubricVersion
		frozen.Status = domain.InspectionCompleted
		frozen.CompletedAt = &now
		frozen.UpdatedAt = now
		insp = &frozen
		inspChanged = true
	}

	advanced, err := stages.Advance(work, stage, insp)
	if err != nil {
		return nil, reject(log, err)
	}
	advanced.UpdatedAt = now

	stopped, err := s.timers.Stop(ctx, c.ID, stage.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if inspChanged {
		if err := s.store.SaveInspection(ctx, insp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		advanced.InspectionID = insp.ID
	}
	if err := s.store.SaveCase(ctx, &advanced); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.resumeActiveTimer(ctx, &advanced); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("stage completed",
		slog.String("status", string(advanced.Status)),
		slog.String("currentStage", advanced.CurrentStage.String()),
		slog.Int64("elapsedMs", stopped.ElapsedMs))

	ev := notify.Event{
		Kind:       notify.EventStageCompleted,
		CaseID:     advanced.ID,
		Stage:      stage.String(),
		Status:     string(advanced.Status),
		Customer:   advanced.Customer.Name,
		VIN:        advanced.Vehicle.VIN,
		ElapsedMs:  stopped.ElapsedMs,
		OccurredAt: now,
	}
	if stages.IsTerminal(advanced) {
		ev.Kind = notify.EventCaseCompleted
	} else {
		ev.NextStage = advanced.CurrentStage.String()
	}
	if stage == domain.StageInspection && insp != nil {
		ev.OverallRating = insp.OverallRating
	}
	if d := advanced.OfferDecision(); stage == domain.StageQuote && d != nil {
		amount := d.FinalAmount
		ev.Amount = &amount
	}
	s.notify(ctx, ev)

	return &advanced, nil
}

// DeclineOffer records a declined offer and closes the case.
func (s *Service) DeclineOffer(ctx context.Context, caseID, reason string) (*domain.Case, error) {
	op := "cases.DeclineOffer"
	log := s.log.With(slog.String("op", op), slog.String("caseID", caseID))

	c, err := s.store.LoadCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c.Status == domain.CaseStatusQuoteDeclined {
		log.Debug("offer already declined")
		return c, nil
	}

	now := s.now().UTC()
	declined, err := stages.Terminate(*c, reason, now)
	if err != nil {
		return nil, reject(log, err)
	}
	declined.UpdatedAt = now

	stopped, err := s.timers.Stop(ctx, c.ID, domain.StageQuote.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.SaveCase(ctx, &declined); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("offer declined", slog.String("reason", reason))

	ev := notify.Event{
		Kind:       notify.EventOfferDeclined,
		CaseID:     declined.ID,
		Stage:      domain.StageQuote.String(),
		Status:     string(declined.Status),
		Customer:   declined.Customer.Name,
		VIN:        declined.Vehicle.VIN,
		Reason:     reason,
		ElapsedMs:  stopped.ElapsedMs,
		OccurredAt: now,
	}
	if d := declined.OfferDecision(); d != nil && d.FinalAmount > 0 {
		amount := d.FinalAmount
		ev.Amount = &amount
	}
	s.notify(ctx, ev)

	return &declined, nil
}

// RescheduleStage reopens a reschedulable stage. The running timer of the
// active stage is stopped and the reopened stage's timer resumes.
func (s *Service) RescheduleStage(ctx context.Context, caseID string, stage domain.Stage) (*domain.Case, error) {
	op := "cases.RescheduleStage"
	log := s.log.With(slog.String("op", op), slog.String("caseID", caseID), slog.String("stage", stage.String()))

	c, err := s.store.LoadCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	insp, err := s.loadInspection(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reopened, err := stages.Reopen(*c, stage, insp)
	if err != nil {
		return nil, reject(log, err)
	}
	if reopened.CurrentStage == c.CurrentStage {
		if _, err := s.timers.Start(ctx, c.ID, stage.String()); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return c, nil
	}

	now := s.now().UTC()
	reopened.UpdatedAt = now

	if active, ok := c.ActiveStage(); ok {
		if _, err := s.timers.Stop(ctx, c.ID, active.String()); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := s.store.SaveCase(ctx, &reopened); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.timers.Start(ctx, c.ID, stage.String()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("stage rescheduled", slog.String("from", c.CurrentStage.String()))
	s.notify(ctx, notify.Event{
		Kind:       notify.EventStageRescheduled,
		CaseID:     reopened.ID,
		Stage:      stage.String(),
		Status:     string(reopened.Status),
		Customer:   reopened.Customer.Name,
		VIN:        reopened.Vehicle.VIN,
		OccurredAt: now,
	})
	return &reopened, nil
}

// applyOutputs copies the outputs relevant to stage onto the working copies.
// It reports whether the inspection needs to be saved.
func (s *Service) applyOutputs(
	c *domain.Case,
	insp **domain.Inspection,
	stage domain.Stage,
	out StageOutputs,
	now time.Time,
) (bool, error) {
	switch stage {
	case domain.StageIntake:
		if out.Customer != nil {
			c.Customer = *out.Customer
		}
		if out.Vehicle != nil {
			if out.Vehicle.Type != "" && !out.Vehicle.Type.Valid() {
				return false, domain.UnknownVehicleType(out.Vehicle.Type)
			}
			c.Vehicle = *out.Vehicle
		}
	case domain.StageScheduleInspection:
		if out.Inspection == nil {
			return false, nil
		}
		if *insp == nil {
			if !c.Vehicle.Type.Valid() {
				return false, domain.UnknownVehicleType(c.Vehicle.Type)
			}
			*insp = &domain.Inspection{
				ID:          uuid.NewString(),
				CaseID:      c.ID,
				Status:      domain.InspectionPending,
				VehicleType: c.Vehicle.Type,
				Answers:     map[string]domain.Answer{},
				CreatedAt:   now,
			}
		} else if !(*insp).Status.IsEditable() {
			return false, domain.InvalidTransition(c.ID, stage, "inspection is already completed")
		} else {
			cp := (*insp).Clone()
			*insp = &cp
		}
		at := out.Inspection.ScheduledAt.UTC()
		(*insp).ScheduledAt = &at
		(*insp).InspectorID = out.Inspection.InspectorID
		(*insp).UpdatedAt = now
		c.InspectionID = (*insp).ID
		return true, nil
	case domain.StageQuote:
		if c.Quote == nil {
			c.Quote = &domain.Quote{}
		}
		amount := c.Quote.Amount
		if out.AcceptedAmount != nil {
			amount = *out.AcceptedAmount
		}
		c.Quote.OfferDecision = &domain.OfferDecision{
			Decision:    domain.DecisionAccepted,
			FinalAmount: amount,
			DecidedAt:   now,
		}
	case domain.StagePaperwork:
		if out.Payment != nil {
			p := *out.Payment
			if p.PaidAt.IsZero() {
				p.PaidAt = now
			}
			c.Payment = &p
		}
	case domain.StageSchedulePickup:
		if out.Pickup != nil {
			p := *out.Pickup
			c.Pickup = &p
		}
	case domain.StageInspection, domain.StageCompletion:
	}
	return false, nil
}

// sameOutputs reports whether out only repeats what a completed stage stored.
func sameOutputs(c *domain.Case, insp *domain.Inspection, stage domain.Stage, out StageOutputs) bool {
	switch stage {
	case domain.StageIntake:
		return (out.Customer == nil || *out.Customer == c.Customer) &&
			(out.Vehicle == nil || *out.Vehicle == c.Vehicle)
	case domain.StageScheduleInspection:
		if out.Inspection == nil {
			return true
		}
		return insp != nil && insp.ScheduledAt != nil &&
			insp.InspectorID == out.Inspection.InspectorID &&
			insp.ScheduledAt.Equal(out.Inspection.ScheduledAt)
	case domain.StageQuote:
		if out.AcceptedAmount == nil {
			return true
		}
		d := c.OfferDecision()
		return d != nil && d.FinalAmount == *out.AcceptedAmount
	case domain.StagePaperwork:
		if out.Payment == nil {
			return true
		}
		p := c.Payment
		return p != nil && p.Method == out.Payment.Method && p.Amount == out.Payment.Amount &&
			p.Reference == out.Payment.Reference &&
			(out.Payment.PaidAt.IsZero() || p.PaidAt.Equal(out.Payment.PaidAt))
	case domain.StageSchedulePickup:
		if out.Pickup == nil {
			return true
		}
		return c.Pickup != nil && c.Pickup.Address == out.Pickup.Address &&
			c.Pickup.ScheduledAt.Equal(out.Pickup.ScheduledAt)
	}
	return true
}

func (s *Service) loadInspection(ctx context.Context, c *domain.Case) (*domain.Inspection, error) {
	if c.InspectionID == "" {
		return nil, nil
	}
	return s.store.LoadInspection(ctx, c.InspectionID)
}

// resumeActiveTimer makes sure the active stage of an open case is timed.
func (s *Service) resumeActiveTimer(ctx context.Context, c *domain.Case) error {
	if stages.IsTerminal(*c) {
		return nil
	}
	active, ok := c.ActiveStage()
	if !ok {
		return nil
	}
	_, err := s.timers.Start(ctx, c.ID, active.String())
	return err
}

// reject logs a rejected request with its error kind and returns err.
func reject(log *slog.Logger, err error) error {
	log.Info("request rejected", sl.Kind(err), sl.Err(err))
	return err
}

// notify hands an event to the notifier. Failures are logged, never returned.
func (s *Service) notify(ctx context.Context, e notify.Event) {
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.log.Warn("notification failed",
			slog.String("kind", string(e.Kind)),
			slog.String("caseID", e.CaseID),
			sl.Err(err))
	}
}
