package domain

import (
	"maps"
	"slices"
	"time"
)

// Stage is an index into the ordered case pipeline.
type Stage int

const (
	StageIntake Stage = iota
	StageScheduleInspection
	StageInspection
	StageQuote
	StagePaperwork
	StageSchedulePickup
	StageCompletion
)

// Stages lists the pipeline in order.
var Stages = []Stage{
	StageIntake,
	StageScheduleInspection,
	StageInspection,
	StageQuote,
	StagePaperwork,
	StageSchedulePickup,
	StageCompletion,
}

var stageNames = map[Stage]string{
	StageIntake:             "intake",
	StageScheduleInspection: "schedule-inspection",
	StageInspection:         "inspection",
	StageQuote:              "quote",
	StagePaperwork:          "paperwork",
	StageSchedulePickup:     "schedule-pickup",
	StageCompletion:         "completion",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is one of the pipeline stages.
func (s Stage) Valid() bool {
	return s >= StageIntake && s <= StageCompletion
}

// ParseStage resolves a stage by name.
func ParseStage(name string) (Stage, bool) {
	for s, n := range stageNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// StageStatus is the per-stage progress marker.
type StageStatus string

const (
	StageStatusPending  StageStatus = "pending"
	StageStatusActive   StageStatus = "active"
	StageStatusComplete StageStatus = "complete"
)

// CaseStatus is the overall status of a case, distinct from per-stage status.
type CaseStatus string

const (
	CaseStatusNew               CaseStatus = "new"
	CaseStatusIntakeComplete    CaseStatus = "intake-complete"
	CaseStatusScheduled         CaseStatus = "scheduled"
	CaseStatusInspected         CaseStatus = "inspected"
	CaseStatusOfferAccepted     CaseStatus = "offer-accepted"
	CaseStatusPaperworkComplete CaseStatus = "paperwork-complete"
	CaseStatusPickupScheduled   CaseStatus = "pickup-scheduled"
	CaseStatusCompleted         CaseStatus = "completed"
	CaseStatusQuoteDeclined     CaseStatus = "quote-declined"
)

// CaseStatuses lists every case status in pipeline order.
var CaseStatuses = []CaseStatus{
	CaseStatusNew,
	CaseStatusIntakeComplete,
	CaseStatusScheduled,
	CaseStatusInspected,
	CaseStatusOfferAccepted,
	CaseStatusPaperworkComplete,
	CaseStatusPickupScheduled,
	CaseStatusCompleted,
	CaseStatusQuoteDeclined,
}

// Valid reports whether s is a known case status.
func (s CaseStatus) Valid() bool {
	return slices.Contains(CaseStatuses, s)
}

// Decision is the customer's answer to an offer.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionDeclined Decision = "declined"
)

// OfferDecision records what the customer did with the quote.
type OfferDecision struct {
	Decision    Decision  `json:"decision"`
	FinalAmount float64   `json:"finalAmount"`
	Reason      string    `json:"reason,omitempty"`
	DecidedAt   time.Time `json:"decidedAt"`
}

// Quote is the purchase offer made after inspection.
type Quote struct {
	Amount        float64        `json:"amount"`
	OfferDecision *OfferDecision `json:"offerDecision,omitempty"`
}

// Customer is the seller of the vehicle.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Vehicle describes the car being acquired.
type Vehicle struct {
	VIN     string      `json:"vin"`
	Year    int         `json:"year,omitempty"`
	Make    string      `json:"make,omitempty"`
	Model   string      `json:"model,omitempty"`
	Mileage int         `json:"mileage,omitempty"`
	Type    VehicleType `json:"type"`
}

// Payment is recorded during the paperwork stage.
type Payment struct {
	Method    string    `json:"method"`
	Amount    float64   `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paidAt"`
}

// Pickup is the vehicle collection appointment.
type Pickup struct {
	ScheduledAt time.Time `json:"scheduledAt"`
	Address     string    `json:"address,omitempty"`
}

// Case is one vehicle-purchase transaction moving through the pipeline.
type Case struct {
	ID            string
	Status        CaseStatus
	CurrentStage  Stage
	StageStatuses map[Stage]StageStatus
	Customer      Customer
	Vehicle       Vehicle
	InspectionID  string
	Quote         *Quote
	Payment       *Payment
	Pickup        *Pickup
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OfferDecision returns the recorded decision, if any.
func (c *Case) OfferDecision() *OfferDecision {
	if c.Quote == nil {
		return nil
	}
	return c.Quote.OfferDecision
}

// StatusOf returns the status of stage s, pending when unset.
func (c *Case) StatusOf(s Stage) StageStatus {
	if st, ok := c.StageStatuses[s]; ok {
		return st
	}
	return StageStatusPending
}

// ActiveStage returns the stage currently marked active.
func (c *Case) ActiveStage() (Stage, bool) {
	for _, s := range Stages {
		if c.StageStatuses[s] == StageStatusActive {
			return s, true
		}
	}
	return 0, false
}

// Clone returns a deep copy of c.
func (c Case) Clone() Case {
	out := c
	out.StageStatuses = maps.Clone(c.StageStatuses)
	if out.StageStatuses == nil {
		out.StageStatuses = make(map[Stage]StageStatus, len(Stages))
	}
	if c.Quote != nil {
		q := *c.Quote
		if q.OfferDecision != nil {
			d := *q.OfferDecision
			q.OfferDecision = &d
		}
		out.Quote = &q
	}
	if c.Payment != nil {
		p := *c.Payment
		out.Payment = &p
	}
	if c.Pickup != nil {
		p := *c.Pickup
		out.Pickup = &p
	}
	return out
}
