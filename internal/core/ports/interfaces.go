package ports

import (
	"context"

	"unfollowcleaner/internal/core/domain"
)

// Row is one result row as returned by the analytics service.
type Row map[string]any

// Analytics defines the contract for running parameterized queries.
type Analytics interface {
	// Execute starts a query execution and returns its handle.
	Execute(ctx context.Context, queryID string, params map[string]any) (*domain.Execution, error)

	// Status returns the current state of an execution.
	Status(ctx context.Context, executionID string) (*domain.Execution, error)

	// Results fetches the rows of a completed execution.
	Results(ctx context.Context, executionID string) ([]Row, error)
}

// UnfollowResult is the per-request response of the relationship service.
type UnfollowResult struct {
	Success bool
	// Details lists per-target results when the service reports them.
	Details []TargetResult
}

// TargetResult is the outcome for a single target FID.
type TargetResult struct {
	FID     domain.FID
	Success bool
}

// FollowManager defines the contract for removing follow relationships.
type FollowManager interface {
	// Unfollow removes the follow relationship from signer to each target.
	// Implementations must accept at most 100 targets per call.
	Unfollow(ctx context.Context, signerUUID string, targets []domain.FID) (*UnfollowResult, error)
}

// Console is the operator-facing terminal.
type Console interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Success(format string, args ...any)

	// Prompt writes the question and blocks until a line of input is read
	// or ctx is done. The line terminator is not part of the answer.
	Prompt(ctx context.Context, question string) (string, error)
}
