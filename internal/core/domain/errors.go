package domain

import (
	"errors"
	"fmt"
)

// ErrNoExecutionID is wrapped by SubmissionError when the analytics service
// accepted the request but returned no execution handle.
var ErrNoExecutionID = errors.New("no execution id returned")

// SubmissionError is returned when a query execution could not be started.
type SubmissionError struct {
	QueryID string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit query %s: %v", e.QueryID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// QueryExecutionError is returned when the analytics service reports that the
// execution ended in a failure state.
type QueryExecutionError struct {
	ExecutionID string
	State       ExecutionState
	Message     string
}

func (e *QueryExecutionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("execution %s ended in state %s", e.ExecutionID, e.State)
	}
	return fmt.Sprintf("execution %s ended in state %s: %s", e.ExecutionID, e.State, e.Message)
}

// PollTimeoutError is returned when an execution did not finish within the
// configured number of status checks.
type PollTimeoutError struct {
	ExecutionID string
	Attempts    int
	LastState   ExecutionState
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("execution %s still %s after %d status checks", e.ExecutionID, e.LastState, e.Attempts)
}
