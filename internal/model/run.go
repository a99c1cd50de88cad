package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusCleaning    RunStatus = "cleaning"
	RunStatusEnriching   RunStatus = "enriching"
	RunStatusIntegrating RunStatus = "integrating"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run describes one execution of the pipeline.
type Run struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Status      RunStatus     `json:"status"`
	RowsIn      int           `json:"rows_in"`
	RowsOut     int           `json:"rows_out"`
	Phases      []PhaseResult `json:"phases"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Error       string        `json:"error,omitempty"`
}

// PhaseStatus represents the outcome of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
