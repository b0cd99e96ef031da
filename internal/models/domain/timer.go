package domain

import "time"

// StageTimer tracks working time for a (case, stage) pair.
type StageTimer struct {
	CaseID    string
	Stage     string
	StartTime time.Time
	StopTime  *time.Time
	ElapsedMs int64
}

// Running reports whether the timer has been started and not stopped.
func (t StageTimer) Running() bool {
	return !t.StartTime.IsZero() && t.StopTime == nil
}

// StopResult is returned by stopping a timer.
type StopResult struct {
	ElapsedMs int64
	StartedAt time.Time
	StoppedAt time.Time
}
