package domain

import "time"

// FID is a numeric account identifier on the social graph.
type FID uint64

// ExecutionState is the lifecycle state reported for an analytics query execution.
type ExecutionState string

const (
	StatePending          ExecutionState = "QUERY_STATE_PENDING"
	StateExecuting        ExecutionState = "QUERY_STATE_EXECUTING"
	StateCompleted        ExecutionState = "QUERY_STATE_COMPLETED"
	StateCompletedPartial ExecutionState = "QUERY_STATE_COMPLETED_PARTIAL"
	StateFailed           ExecutionState = "QUERY_STATE_FAILED"
	StateCancelled        ExecutionState = "QUERY_STATE_CANCELLED"
	StateExpired          ExecutionState = "QUERY_STATE_EXPIRED"
)

// Succeeded reports whether results can be fetched for this state.
func (s ExecutionState) Succeeded() bool {
	return s == StateCompleted || s == StateCompletedPartial
}

// Failed reports whether the execution ended without results.
func (s ExecutionState) Failed() bool {
	return s == StateFailed || s == StateCancelled || s == StateExpired
}

// Execution is a snapshot of a remote query execution.
type Execution struct {
	ID           string         `json:"execution_id"`
	State        ExecutionState `json:"state"`
	ErrorMessage string         `json:"error,omitempty"`
}

// Batch is a contiguous slice of the flagged FIDs sent in one request.
type Batch struct {
	Index int
	FIDs  []FID
}

// BatchStatus summarizes how a single delete request went.
type BatchStatus string

const (
	BatchSucceeded BatchStatus = "success"
	BatchPartial   BatchStatus = "partial"
	BatchFailed    BatchStatus = "failed"
)

// BatchOutcome holds the result of one delete request.
type BatchOutcome struct {
	Batch     Batch
	Status    BatchStatus
	Succeeded int
	Failed    int
	Err       error
}

// RunResult holds the outcome of a complete run.
type RunResult struct {
	RunID       string
	TargetFID   FID
	Flagged     []FID
	Confirmed   bool
	DryRun      bool
	Outcomes    []BatchOutcome
	StartedAt   time.Time
	CompletedAt time.Time
}

// Unfollowed returns the number of FIDs the relationship service accepted.
func (r *RunResult) Unfollowed() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Succeeded
	}
	return n
}

// CountByStatus returns how many batches ended with the given status.
func (r *RunResult) CountByStatus(status BatchStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
