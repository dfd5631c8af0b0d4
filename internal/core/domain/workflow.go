package domain

import "time"

type WorkflowState string

const (
	StatePending   WorkflowState = "pending"
	StateRedacting WorkflowState = "redacting"
	StateAnalyzing WorkflowState = "analyzing"
	StateCompleted WorkflowState = "completed"
	StateFailed    WorkflowState = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s WorkflowState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Public maps internal states onto the coarser vocabulary polling clients
// observe: every non-terminal state is "processing".
func (s WorkflowState) Public() string {
	switch s {
	case StateCompleted, StateFailed:
		return string(s)
	default:
		return "processing"
	}
}

type FailureKind string

const (
	FailureRedaction FailureKind = "redaction_failed"
	FailureAnalysis  FailureKind = "analysis_failed"
	FailureTimeout   FailureKind = "timeout"
)

// Progress waypoints for the stage transitions. Progress only ever moves
// forward; the repository enforces monotonicity with GREATEST.
const (
	ProgressPending       = 0
	ProgressRedacting     = 40
	ProgressRedactionDone = 50
	ProgressAnalyzing     = 60
	ProgressCompleted     = 100
)

// Workflow is the per-document state machine record. It exists 1:1 with a
// Document and is mutated only through forward transitions.
type Workflow struct {
	ID           string        `json:"workflow_id"`
	DocumentID   string        `json:"document_id"`
	State        WorkflowState `json:"state"`
	Progress     int           `json:"progress"`
	CurrentStep  string        `json:"current_step"`
	ErrorKind    FailureKind   `json:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Attempts     int           `json:"attempts"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
