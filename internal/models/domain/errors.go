package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrorKind is the machine-readable class of a rejected operation.
type ErrorKind string

const (
	KindInvalidTransition  ErrorKind = "invalid_transition"
	KindNotReschedulable   ErrorKind = "not_reschedulable"
	KindIncompleteAnswers  ErrorKind = "incomplete_answers"
	KindUnknownVehicleType ErrorKind = "unknown_vehicle_type"
	KindSectionMismatch    ErrorKind = "section_mismatch"
	KindUnknownQuestion    ErrorKind = "unknown_question"
	KindInvalidAnswer      ErrorKind = "invalid_answer"
	KindInspectionLocked   ErrorKind = "inspection_locked"
)

// Sentinels for errors.Is matching on kind only.
var (
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrNotReschedulable   = &Error{Kind: KindNotReschedulable}
	ErrIncompleteAnswers  = &Error{Kind: KindIncompleteAnswers}
	ErrUnknownVehicleType = &Error{Kind: KindUnknownVehicleType}
	ErrSectionMismatch    = &Error{Kind: KindSectionMismatch}
	ErrUnknownQuestion    = &Error{Kind: KindUnknownQuestion}
	ErrInvalidAnswer      = &Error{Kind: KindInvalidAnswer}
	ErrInspectionLocked   = &Error{Kind: KindInspectionLocked}
)

// Error is a recoverable, user-facing rejection of a case operation.
type Error struct {
	Kind        ErrorKind
	CaseID      string
	Stage       *Stage
	QuestionIDs []string
	Reason      string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.CaseID != "" {
		fmt.Fprintf(&b, " case=%s", e.CaseID)
	}
	if e.Stage != nil {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	if len(e.QuestionIDs) > 0 {
		fmt.Fprintf(&b, " questions=%s", strings.Join(e.QuestionIDs, ","))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the domain error kind from err.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// IsDomainError reports whether err is a recoverable domain rejection
// rather than an infrastructure failure.
func IsDomainError(err error) bool {
	_, ok := KindOf(err)
	return ok
}

func stagePtr(s Stage) *Stage {
	return &s
}

// InvalidTransition builds a KindInvalidTransition error.
func InvalidTransition(caseID string, stage Stage, reason string) *Error {
	return &Error{Kind: KindInvalidTransition, CaseID: caseID, Stage: stagePtr(stage), Reason: reason}
}

// NotReschedulable builds a KindNotReschedulable error.
func NotReschedulable(caseID string, stage Stage, reason string) *Error {
	return &Error{Kind: KindNotReschedulable, CaseID: caseID, Stage: stagePtr(stage), Reason: reason}
}

// IncompleteAnswers builds a KindIncompleteAnswers error listing missing question ids.
func IncompleteAnswers(missing []string) *Error {
	return &Error{Kind: KindIncompleteAnswers, QuestionIDs: missing,
		Reason: fmt.Sprintf("%d required question(s) unanswered", len(missing))}
}

// UnknownVehicleType builds a KindUnknownVehicleType error.
func UnknownVehicleType(t VehicleType) *Error {
	return &Error{Kind: KindUnknownVehicleType, Reason: fmt.Sprintf("no rubric for vehicle type %q", t)}
}
