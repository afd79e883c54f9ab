package model

import "time"

// RunKind identifies which pipeline produced a run.
type RunKind string

const (
	RunKindCrawl RunKind = "crawl"
	RunKindAPIs  RunKind = "apis"
)

// RunStatus represents the state of a run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	// RunStatusPartial marks a run that stopped early (renderer fatal or
	// interrupt) but still wrote the rows gathered so far.
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// RowState is the per-row crawl state.
type RowState string

const (
	RowPending   RowState = "pending"
	RowLoaded    RowState = "loaded"
	RowExtracted RowState = "extracted"
	RowFailed    RowState = "failed"
	RowSkipped   RowState = "skipped"
)

// Run is one invocation of a pipeline.
type Run struct {
	ID         string     `json:"id"`
	Kind       RunKind    `json:"kind"`
	Input      string     `json:"input"`
	Output     string     `json:"output"`
	Status     RunStatus  `json:"status"`
	Stats      RunStats   `json:"stats"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunStats summarizes row outcomes for a run.
type RunStats struct {
	Rows      int `json:"rows"`
	Extracted int `json:"extracted"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Columns   int `json:"columns"`
}

// RowOutcome is the stored diagnostic for one processed row.
type RowOutcome struct {
	RunID      string    `json:"run_id"`
	RowIndex   int       `json:"row_index"`
	URL        string    `json:"url"`
	State      RowState  `json:"state"`
	FieldCount int       `json:"field_count"`
	Error      string    `json:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty"` // "transient" or "permanent"
	RecordedAt time.Time `json:"recorded_at"`
}
