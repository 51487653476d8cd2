package jobs

import (
	"encoding/json"
	"time"
)

// State is the lifecycle state of a scheduled job.
type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// Job kinds accepted by the scheduler.
const (
	KindAnalysis   = "document_analysis"
	KindComparison = "document_comparison"
)

// Job is one unit of scheduled work. Terminal states are SUCCEEDED,
// FAILED, and CANCELLED; every accepted job reaches one of them.
type Job struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	SubjectIDs []string        `json:"subjectIds"`
	State      State           `json:"state"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}
