package telegram

import (
	"fmt"
	"strings"
	"time"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/notify"
	"CaseLifecycle/internal/timer"
)

var stageIcons = map[domain.StageStatus]string{
	domain.StageStatusPending:  "⚪",
	domain.StageStatusActive:   "🟡",
	domain.StageStatusComplete: "🟢",
}

func formatCase(c *domain.Case, insp *domain.Inspection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚗 Case %s\n", c.ID)
	fmt.Fprintf(&b, "Status: %s\n", c.Status)
	fmt.Fprintf(&b, "Customer: %s\n", c.Customer.Name)
	fmt.Fprintf(&b, "Vehicle: %s", c.Vehicle.VIN)
	if c.Vehicle.Make != "" {
		fmt.Fprintf(&b, " (%d %s %s, %s)", c.Vehicle.Year, c.Vehicle.Make, c.Vehicle.Model, c.Vehicle.Type)
	}
	b.WriteString("\n\nStages:\n")
	for _, s := range domain.Stages {
		fmt.Fprintf(&b, "%s %s\n", stageIcons[c.StatusOf(s)], s)
	}

	if insp != nil {
		fmt.Fprintf(&b, "\n🔍 Inspection: %s", insp.Status)
		if insp.OverallRating != nil {
			fmt.Fprintf(&b, ", overall %.1f/5", *insp.OverallRating)
		}
		b.WriteString("\n")
		for _, sr := range insp.Sections {
			fmt.Fprintf(&b, "  %s: %d/5\n", sr.SectionID, sr.Rating)
		}
	}

	if c.Quote != nil {
		fmt.Fprintf(&b, "\n💰 Quote: %.2f", c.Quote.Amount)
		if d := c.Quote.OfferDecision; d != nil {
			fmt.Fprintf(&b, " (%s", d.Decision)
			if d.Reason != "" {
				fmt.Fprintf(&b, ": %s", d.Reason)
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const listLimit = 20

func formatCaseList(status domain.CaseStatus, list []domain.Case) string {
	if len(list) == 0 {
		return fmt.Sprintf("📭 No cases in %s.", status)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📂 Cases in %s:\n", status)
	for _, c := range list {
		fmt.Fprintf(&b, "• %s %s (%s), at %s\n", c.ID, c.Customer.Name, c.Vehicle.VIN, c.CurrentStage)
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinStatuses(statuses []domain.CaseStatus) string {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func formatTimers(caseID string, timers []domain.StageTimer, now time.Time) string {
	if len(timers) == 0 {
		return fmt.Sprintf("⏱ No timers for case %s yet.", caseID)
	}

	var (
		b     strings.Builder
		total time.Duration
	)
	fmt.Fprintf(&b, "⏱ Working time for case %s\n", caseID)
	for i := range timers {
		t := &timers[i]
		d := timer.Elapsed(*t, now)
		total += d
		state := ""
		if t.Running() {
			state = " (running)"
		}
		fmt.Fprintf(&b, "%s: %s%s\n", t.Stage, d.Round(time.Second), state)
	}
	fmt.Fprintf(&b, "Total: %s", total.Round(time.Second))
	return b.String()
}

func formatEvent(e notify.Event) string {
	var b strings.Builder
	switch e.Kind {
	case notify.EventCaseOpened:
		fmt.Fprintf(&b, "🆕 Case %s opened for %s (VIN %s)", e.CaseID, e.Customer, e.VIN)
	case notify.EventStageCompleted:
		fmt.Fprintf(&b, "✅ Case %s: %s completed", e.CaseID, e.Stage)
		if e.NextStage != "" {
			fmt.Fprintf(&b, ", next is %s", e.NextStage)
		}
	case notify.EventStageRescheduled:
		fmt.Fprintf(&b, "🔁 Case %s: %s rescheduled", e.CaseID, e.Stage)
	case notify.EventOfferDeclined:
		fmt.Fprintf(&b, "🚫 Case %s: offer declined", e.CaseID)
		if e.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.Reason)
		}
	case notify.EventCaseCompleted:
		fmt.Fprintf(&b, "🏁 Case %s completed", e.CaseID)
	default:
		fmt.Fprintf(&b, "ℹ️ Case %s: %s", e.CaseID, e.Kind)
	}
	if e.OverallRating != nil {
		fmt.Fprintf(&b, "\nOverall rating: %.1f/5", *e.OverallRating)
	}
	if e.Amount != nil {
		fmt.Fprintf(&b, "\nAmount: %.2f", *e.Amount)
	}
	if e.ElapsedMs > 0 {
		fmt.Fprintf(&b, "\nStage time: %s", (time.Duration(e.ElapsedMs) * time.Millisecond).Round(time.Second))
	}
	return b.String()
}

func describeError(e *domain.Error) string {
	switch e.Kind {
	case domain.KindIncompleteAnswers:
		return fmt.Sprintf("Inspection is incomplete, unanswered: %s", strings.Join(e.QuestionIDs, ", "))
	case domain.KindNotReschedulable:
		return "Stage cannot be rescheduled: " + e.Reason
	case domain.KindInvalidTransition:
		return "Not allowed right now: " + e.Reason
	default:
		return e.Error()
	}
}
