package repositories

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

type BaseModel struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CaseRow mirrors the cases table. Nested records are stored as jsonb.
type CaseRow struct {
	BaseModel
	Status        string             `db:"status"`
	CurrentStage  int                `db:"current_stage"`
	StageStatuses types.JSONText     `db:"stage_statuses"`
	Customer      types.JSONText     `db:"customer"`
	Vehicle       types.JSONText     `db:"vehicle"`
	VIN           string             `db:"vin"`
	InspectionID  sql.NullString     `db:"inspection_id"`
	Quote         types.NullJSONText `db:"quote"`
	Payment       types.NullJSONText `db:"payment"`
	Pickup        types.NullJSONText `db:"pickup"`
	Version       int64              `db:"version"`
}

// InspectionRow mirrors the inspections table.
type InspectionRow struct {
	BaseModel
	CaseID        string          `db:"case_id"`
	Status        string          `db:"status"`
	VehicleType   string          `db:"vehicle_type"`
	InspectorID   string          `db:"inspector_id"`
	ScheduledAt   sql.NullTime    `db:"scheduled_at"`
	Answers       types.JSONText  `db:"answers"`
	Sections      types.JSONText  `db:"sections"`
	OverallRating sql.NullFloat64 `db:"overall_rating"`
	RubricVersion string          `db:"rubric_version"`
	CompletedAt   sql.NullTime    `db:"completed_at"`
}

// StageTimerRow mirrors the stage_timers table.
type StageTimerRow struct {
	CaseID    string       `db:"case_id"`
	Stage     string       `db:"stage"`
	StartTime time.Time    `db:"start_time"`
	StopTime  sql.NullTime `db:"stop_time"`
	ElapsedMs int64        `db:"elapsed_ms"`
}
