package notify

import (
	"context"
	"errors"
	"time"
)

// EventKind names a lifecycle change worth telling customers or staff about.
type EventKind string

const (
	EventCaseOpened       EventKind = "case_opened"
	EventStageCompleted   EventKind = "stage_completed"
	EventStageRescheduled EventKind = "stage_rescheduled"
	EventOfferDeclined    EventKind = "offer_declined"
	EventCaseCompleted    EventKind = "case_completed"
)

// Event is a lifecycle change of one case.
type Event struct {
	Kind          EventKind `json:"kind"`
	CaseID        string    `json:"caseId"`
	Stage         string    `json:"stage"`
	NextStage     string    `json:"nextStage,omitempty"`
	Status        string    `json:"status"`
	Customer      string    `json:"customer,omitempty"`
	VIN           string    `json:"vin,omitempty"`
	OverallRating *float64  `json:"overallRating,omitempty"`
	Amount        *float64  `json:"amount,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	ElapsedMs     int64     `json:"elapsedMs,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Notifier delivers events. Delivery is fire-and-forget for the caller.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
