package models

import (
	"time"

	"github.com/google/uuid"
)

// ScreenRunStatus represents the status of a batch screening run
type ScreenRunStatus string

const (
	ScreenRunStatusRunning   ScreenRunStatus = "running"
	ScreenRunStatusCompleted ScreenRunStatus = "completed"
	ScreenRunStatusFailed    ScreenRunStatus = "failed"
)

// ScreenRun is the audit record for one batch import. It captures what was
// screened and which rows failed; the verdicts themselves are recomputed on
// demand and never stored.
type ScreenRun struct {
	ID         uuid.UUID       `json:"id"`
	RunAt      time.Time       `json:"run_at"`
	Source     string          `json:"source"` // "csv" or "chain"
	Trade      TradeParameters `json:"trade"`
	RowsTotal  int             `json:"rows_total"`
	RowsScored int             `json:"rows_scored"`
	RowErrors  []RowError      `json:"row_errors"`
	DurationMs int64           `json:"duration_ms"`
	Status     ScreenRunStatus `json:"status"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewScreenRun creates a running ScreenRun for the given source
func NewScreenRun(source string, trade TradeParameters) *ScreenRun {
	now := time.Now()
	return &ScreenRun{
		ID:        uuid.New(),
		RunAt:     now,
		Source:    source,
		Trade:     trade,
		RowErrors: []RowError{},
		Status:    ScreenRunStatusRunning,
		CreatedAt: now,
	}
}

// Complete marks the run as completed with its row accounting
func (s *ScreenRun) Complete(rowsTotal, rowsScored int, rowErrors []RowError, durationMs int64) {
	s.Status = ScreenRunStatusCompleted
	s.RowsTotal = rowsTotal
	s.RowsScored = rowsScored
	if rowErrors != nil {
		s.RowErrors = rowErrors
	}
	s.DurationMs = durationMs
}

// Fail marks the run as failed with an error message
func (s *ScreenRun) Fail(err string, durationMs int64) {
	s.Status = ScreenRunStatusFailed
	s.Error = err
	s.DurationMs = durationMs
}

// IsCompleted returns true if the run completed successfully
func (s *ScreenRun) IsCompleted() bool {
	return s.Status == ScreenRunStatusCompleted
}
