package stages

import (
	"time"

	"CaseLifecycle/internal/models/domain"
)

// statusAfter is the case status once a stage has been completed.
var statusAfter = map[domain.Stage]domain.CaseStatus{
	domain.StageIntake:             domain.CaseStatusIntakeComplete,
	domain.StageScheduleInspection: domain.CaseStatusScheduled,
	domain.StageInspection:         domain.CaseStatusInspected,
	domain.StageQuote:              domain.CaseStatusOfferAccepted,
	domain.StagePaperwork:          domain.CaseStatusPaperworkComplete,
	domain.StageSchedulePickup:     domain.CaseStatusPickupScheduled,
	domain.StageCompletion:         domain.CaseStatusCompleted,
}

// First is the stage a new case starts in.
const First = domain.StageIntake

// Last is the final stage of the pipeline.
const Last = domain.StageCompletion

// Open initialises the stage bookkeeping of a freshly created case.
func Open(c domain.Case) domain.Case {
	out := c.Clone()
	out.Status = domain.CaseStatusNew
	out.CurrentStage = First
	for _, s := range domain.Stages {
		out.StageStatuses[s] = domain.StageStatusPending
	}
	out.StageStatuses[First] = domain.StageStatusActive
	return out
}

// IsTerminal reports whether the case has left the pipeline.
func IsTerminal(c domain.Case) bool {
	return c.Status == domain.CaseStatusCompleted || c.Status == domain.CaseStatusQuoteDeclined
}

// Advance completes the current active stage and activates the next stage that
// is not already complete. The inspection, when present, is authoritative for
// gating the inspection stage.
func Advance(c domain.Case, completed domain.Stage, insp *domain.Inspection) (domain.Case, error) {
	if !completed.Valid() {
		return c, domain.InvalidTransition(c.ID, completed, "unknown stage")
	}
	if IsTerminal(c) {
		return c, domain.InvalidTransition(c.ID, completed, "case is closed as "+string(c.Status))
	}

	out := sync(c.Clone())
	if out.CurrentStage != completed || out.StatusOf(completed) != domain.StageStatusActive {
		return c, domain.InvalidTransition(c.ID, completed,
			"stage is not active; current stage is "+out.CurrentStage.String())
	}
	if reason := missingData(out, completed, insp); reason != "" {
		return c, domain.InvalidTransition(c.ID, completed, reason)
	}

	out.StageStatuses[completed] = domain.StageStatusComplete
	out.Status = statusAfter[completed]

	next, ok := nextOpen(out, completed)
	if !ok {
		out.Status = domain.CaseStatusCompleted
		return out, nil
	}
	out.CurrentStage = next
	out.StageStatuses[next] = domain.StageStatusActive
	return out, nil
}

// Reopen moves a reschedulable stage back to active. Completed later stages keep
// their status until they are advanced again; the stage that was active goes
// back to pending.
func Reopen(c domain.Case, stage domain.Stage, insp *domain.Inspection) (domain.Case, error) {
	if !stage.Valid() {
		return c, domain.NotReschedulable(c.ID, stage, "unknown stage")
	}
	if IsTerminal(c) {
		return c, domain.NotReschedulable(c.ID, stage, "case is closed as "+string(c.Status))
	}
	if reason := reschedulable(c, stage, insp); reason != "" {
		return c, domain.NotReschedulable(c.ID, stage, reason)
	}

	out := sync(c.Clone())
	if stage > out.CurrentStage {
		return c, domain.NotReschedulable(c.ID, stage, "stage has not been reached")
	}
	if stage == out.CurrentStage {
		return out, nil
	}

	if active, ok := out.ActiveStage(); ok {
		out.StageStatuses[active] = domain.StageStatusPending
	}
	out.StageStatuses[stage] = domain.StageStatusActive
	out.CurrentStage = stage
	out.Status = reopenedStatus(stage)
	return out, nil
}

// Terminate closes the case after a declined offer. It is only legal while the
// quote stage is active; repeating it on a declined case is a no-op.
func Terminate(c domain.Case, reason string, at time.Time) (domain.Case, error) {
	if c.Status == domain.CaseStatusQuoteDeclined {
		return c, nil
	}
	if IsTerminal(c) {
		return c, domain.InvalidTransition(c.ID, domain.StageQuote, "case is closed as "+string(c.Status))
	}
	if c.CurrentStage != domain.StageQuote || c.StatusOf(domain.StageQuote) != domain.StageStatusActive {
		return c, domain.InvalidTransition(c.ID, domain.StageQuote,
			"offers can only be declined during the quote stage")
	}

	out := c.Clone()
	if out.Quote == nil {
		out.Quote = &domain.Quote{}
	}
	out.Quote.OfferDecision = &domain.OfferDecision{
		Decision:    domain.DecisionDeclined,
		FinalAmount: out.Quote.Amount,
		Reason:      reason,
		DecidedAt:   at,
	}
	out.StageStatuses[domain.StageQuote] = domain.StageStatusComplete
	out.Status = domain.CaseStatusQuoteDeclined
	return out, nil
}

// sync re-derives stage statuses from CurrentStage. Stages before it are
// complete; later stages keep a completed status, anything else is pending.
func sync(c domain.Case) domain.Case {
	for _, s := range domain.Stages {
		switch {
		case s < c.CurrentStage:
			c.StageStatuses[s] = domain.StageStatusComplete
		case s == c.CurrentStage:
			if !IsTerminal(c) && c.StageStatuses[s] != domain.StageStatusActive {
				c.StageStatuses[s] = domain.StageStatusActive
			}
		default:
			if c.StageStatuses[s] != domain.StageStatusComplete {
				c.StageStatuses[s] = domain.StageStatusPending
			}
		}
	}
	return c
}

func nextOpen(c domain.Case, after domain.Stage) (domain.Stage, bool) {
	for s := after + 1; s <= Last; s++ {
		if c.StageStatuses[s] != domain.StageStatusComplete {
			return s, true
		}
	}
	return 0, false
}

// missingData returns why a stage cannot be completed yet, or "" when it can.
func missingData(c domain.Case, s domain.Stage, insp *domain.Inspection) string {
	switch s {
	case domain.StageIntake:
		if c.Vehicle.VIN == "" {
			return "vehicle VIN is required"
		}
		if c.Customer.Name == "" {
			return "customer name is required"
		}
	case domain.StageScheduleInspection:
		if insp == nil || insp.ScheduledAt == nil {
			return "inspection has not been scheduled"
		}
	case domain.StageInspection:
		if insp == nil || insp.Status != domain.InspectionCompleted {
			return "inspection is not completed"
		}
	case domain.StageQuote:
		d := c.OfferDecision()
		if d == nil || d.Decision != domain.DecisionAccepted {
			return "offer has not been accepted"
		}
		if d.FinalAmount <= 0 {
			return "accepted offer has no amount"
		}
	case domain.StagePaperwork:
		if c.Payment == nil {
			return "payment has not been recorded"
		}
	case domain.StageSchedulePickup:
		if c.Pickup == nil || c.Pickup.ScheduledAt.IsZero() {
			return "pickup has not been scheduled"
		}
	case domain.StageCompletion:
	}
	return ""
}

// reschedulable returns why a stage cannot be reopened, or "" when it can.
func reschedulable(c domain.Case, s domain.Stage, insp *domain.Inspection) string {
	switch s {
	case domain.StageScheduleInspection, domain.StageInspection:
		if insp == nil {
			return "no inspection to reschedule"
		}
		if insp.Status == domain.InspectionCompleted {
			return "inspection is already completed"
		}
		return ""
	case domain.StageSchedulePickup:
		if c.Status == domain.CaseStatusCompleted {
			return "vehicle has been picked up"
		}
		return ""
	default:
		return "stage " + s.String() + " does not support rescheduling"
	}
}

func reopenedStatus(s domain.Stage) domain.CaseStatus {
	if s == First {
		return domain.CaseStatusNew
	}
	return statusAfter[s-1]
}
