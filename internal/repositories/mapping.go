package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/models/repositories"

	"github.com/jmoiron/sqlx/types"
)

func toJSON(v any) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b), nil
}

// toNullableJSON stores nil pointers as SQL NULL.
func toNullableJSON[T any](v *T) (types.NullJSONText, error) {
	if v == nil {
		return types.NullJSONText{}, nil
	}
	j, err := toJSON(v)
	if err != nil {
		return types.NullJSONText{}, err
	}
	return types.NullJSONText{JSONText: j, Valid: true}, nil
}

func fromNullableJSON[T any](j types.NullJSONText) (*T, error) {
	if !j.Valid || string(j.JSONText) == "null" {
		return nil, nil
	}
	var v T
	if err := j.Unmarshal(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Stage statuses are keyed by stage name in storage.
func caseToRow(c *domain.Case) (*repositories.CaseRow, error) {
	statuses := make(map[string]domain.StageStatus, len(c.StageStatuses))
	for s, st := range c.StageStatuses {
		statuses[s.String()] = st
	}

	row := &repositories.CaseRow{
		BaseModel: repositories.BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		Status:       string(c.Status),
		CurrentStage: int(c.CurrentStage),
		VIN:          c.Vehicle.VIN,
		InspectionID: sql.NullString{String: c.InspectionID, Valid: c.InspectionID != ""},
		Version:      c.Version,
	}

	var err error
	if row.StageStatuses, err = toJSON(statuses); err != nil {
		return nil, fmt.Errorf("stage statuses: %w", err)
	}
	if row.Customer, err = toJSON(c.Customer); err != nil {
		return nil, fmt.Errorf("customer: %w", err)
	}
	if row.Vehicle, err = toJSON(c.Vehicle); err != nil {
		return nil, fmt.Errorf("vehicle: %w", err)
	}
	if row.Quote, err = toNullableJSON(c.Quote); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if row.Payment, err = toNullableJSON(c.Payment); err != nil {
		return nil, fmt.Errorf("payment: %w", err)
	}
	if row.Pickup, err = toNullableJSON(c.Pickup); err != nil {
		return nil, fmt.Errorf("pickup: %w", err)
	}
	return row, nil
}

func rowToCase(row *repositories.CaseRow) (*domain.Case, error) {
	c := &domain.Case{
		ID:            row.ID,
		Status:        domain.CaseStatus(row.Status),
		CurrentStage:  domain.Stage(row.CurrentStage),
		StageStatuses: make(map[domain.Stage]domain.StageStatus, len(domain.Stages)),
		InspectionID:  row.InspectionID.String,
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}

	var statuses map[string]domain.StageStatus
	if err := row.StageStatuses.Unmarshal(&statuses); err != nil {
		return nil, fmt.Errorf("stage statuses: %w", err)
	}
	for name, st := range statuses {
		s, ok := domain.ParseStage(name)
		if !ok {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
		c.StageStatuses[s] = st
	}

	if err := row.Customer.Unmarshal(&c.Customer); err != nil {
		return nil, fmt.Errorf("customer: %w", err)
	}
	if err := row.Vehicle.Unmarshal(&c.Vehicle); err != nil {
		return nil, fmt.Errorf("vehicle: %w", err)
	}

	var err error
	if c.Quote, err = fromNullableJSON[domain.Quote](row.Quote); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if c.Payment, err = fromNullableJSON[domain.Payment](row.Payment); err != nil {
		return nil, fmt.Errorf("payment: %w", err)
	}
	if c.Pickup, err = fromNullableJSON[domain.Pickup](row.Pickup); err != nil {
		return nil, fmt.Errorf("pickup: %w", err)
	}
	return c, nil
}

func inspectionToRow(insp *domain.Inspection) (*repositories.InspectionRow, error) {
	row := &repositories.InspectionRow{
		BaseModel: repositories.BaseModel{
			ID:        insp.ID,
			CreatedAt: insp.CreatedAt,
			UpdatedAt: insp.UpdatedAt,
		},
		CaseID:        insp.CaseID,
		Status:        string(insp.Status),
		VehicleType:   string(insp.VehicleType),
		InspectorID:   insp.InspectorID,
		ScheduledAt:   nullTime(insp.ScheduledAt),
		RubricVersion: insp.RubricVersion,
		CompletedAt:   nullTime(insp.CompletedAt),
	}
	if insp.OverallRating != nil {
		row.OverallRating = sql.NullFloat64{Float64: *insp.OverallRating, Valid: true}
	}

	answers := insp.Answers
	if answers == nil {
		answers = map[string]domain.Answer{}
	}
	sections := insp.Sections
	if sections == nil {
		sections = []domain.SectionResult{}
	}

	var err error
	if row.Answers, err = toJSON(answers); err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	if row.Sections, err = toJSON(sections); err != nil {
		return nil, fmt.Errorf("sections: %w", err)
	}
	return row, nil
}

func rowToInspection(row *repositories.InspectionRow) (*domain.Inspection, error) {
	insp := &domain.Inspection{
		ID:            row.ID,
		CaseID:        row.CaseID,
		Status:        domain.InspectionStatus(row.Status),
		VehicleType:   domain.VehicleType(row.VehicleType),
		InspectorID:   row.InspectorID,
		ScheduledAt:   timePtr(row.ScheduledAt),
		RubricVersion: row.RubricVersion,
		CompletedAt:   timePtr(row.CompletedAt),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.OverallRating.Valid {
		v := row.OverallRating.Float64
		insp.OverallRating = &v
	}
	if err := row.Answers.Unmarshal(&insp.Answers); err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	if err := row.Sections.Unmarshal(&insp.Sections); err != nil {
		return nil, fmt.Errorf("sections: %w", err)
	}
	return insp, nil
}

func timerToRow(t *domain.StageTimer) repositories.StageTimerRow {
	return repositories.StageTimerRow{
		CaseID:    t.CaseID,
		Stage:     t.Stage,
		StartTime: t.StartTime,
		StopTime:  nullTime(t.StopTime),
		ElapsedMs: t.ElapsedMs,
	}
}

func rowToTimer(row repositories.StageTimerRow) domain.StageTimer {
	return domain.StageTimer{
		CaseID:    row.CaseID,
		Stage:     row.Stage,
		StartTime: row.StartTime,
		StopTime:  timePtr(row.StopTime),
		ElapsedMs: row.ElapsedMs,
	}
}
