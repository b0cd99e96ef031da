package domain

import (
	"maps"
	"slices"
	"time"
)

// VehicleType selects which rubric applies to an inspection.
type VehicleType string

const (
	VehicleConventional VehicleType = "conventional"
	VehicleElectric     VehicleType = "electric"
)

// Valid reports whether t is a known powertrain.
func (t VehicleType) Valid() bool {
	return t == VehicleConventional || t == VehicleElectric
}

// InspectionStatus represents the status of an inspection.
type InspectionStatus string

const (
	InspectionPending    InspectionStatus = "pending"
	InspectionInProgress InspectionStatus = "in-progress"
	InspectionCompleted  InspectionStatus = "completed"
)

// IsEditable returns true if answers can still be changed.
func (s InspectionStatus) IsEditable() bool {
	return s == InspectionPending || s == InspectionInProgress
}

// CanTransitionTo returns true if this status can transition to the target status.
func (s InspectionStatus) CanTransitionTo(target InspectionStatus) bool {
	switch s {
	case InspectionPending:
		return target == InspectionInProgress || target == InspectionCompleted
	case InspectionInProgress:
		return target == InspectionCompleted
	default:
		return false
	}
}

// Answer is the value submitted for one question.
// Values holds option values for radio, yesno and checkbox questions.
type Answer struct {
	Values []string `json:"values,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Text   string   `json:"text,omitempty"`
	Photos []string `json:"photos,omitempty"`
}

// SectionResult is the scored outcome of one rubric section.
type SectionResult struct {
	SectionID    string  `json:"sectionId"`
	RawScore     float64 `json:"rawScore"`
	ReferenceMax float64 `json:"referenceMax"`
	Rating       int     `json:"rating"`
}

// Inspection is the vehicle condition assessment attached to a case.
type Inspection struct {
	ID            string
	CaseID        string
	Status        InspectionStatus
	VehicleType   VehicleType
	InspectorID   string
	ScheduledAt   *time.Time
	Answers       map[string]Answer
	Sections      []SectionResult
	OverallRating *float64
	RubricVersion string
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy of i.
func (i Inspection) Clone() Inspection {
	out := i
	out.Answers = make(map[string]Answer, len(i.Answers))
	for id, a := range i.Answers {
		a.Values = slices.Clone(a.Values)
		a.Photos = slices.Clone(a.Photos)
		if a.Number != nil {
			n := *a.Number
			a.Number = &n
		}
		out.Answers[id] = a
	}
	out.Sections = slices.Clone(i.Sections)
	if i.OverallRating != nil {
		r := *i.OverallRating
		out.OverallRating = &r
	}
	if i.ScheduledAt != nil {
		t := *i.ScheduledAt
		out.ScheduledAt = &t
	}
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// MergeAnswers overlays answers on top of the existing set.
func (i *Inspection) MergeAnswers(answers map[string]Answer) {
	if i.Answers == nil {
		i.Answers = make(map[string]Answer, len(answers))
	}
	maps.Copy(i.Answers, answers)
}
