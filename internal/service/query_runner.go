package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.opentelemetry.io/otel/attribute"

	"unfollowcleaner/internal/adapters/httpapi"
	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/core/ports"
	"unfollowcleaner/internal/logger"
)

// errStillRunning is returned by a status check while the execution is in flight.
var errStillRunning = errors.New("execution still running")

// QueryRunnerConfig controls which query is run and how its status is polled.
type QueryRunnerConfig struct {
	QueryID         string
	ParamName       string
	ResultField     string
	PollInterval    time.Duration
	MaxPollAttempts int
}

// QueryRunner runs the flagging query for a target FID and returns the
// flagged FIDs.
type QueryRunner struct {
	analytics ports.Analytics
	console   ports.Console
	cfg       QueryRunnerConfig
	clock     clock.Clock
}

// NewQueryRunner creates a new QueryRunner. A nil clock uses the wall clock.
func NewQueryRunner(analytics ports.Analytics, console ports.Console, cfg QueryRunnerConfig, clk clock.Clock) *QueryRunner {
	if clk == nil {
		clk = clock.WallClock
	}
	return &QueryRunner{
		analytics: analytics,
		console:   console,
		cfg:       cfg,
		clock:     clk,
	}
}

// Run returns the flagged FIDs, or an empty list if anything went wrong.
// Failures are logged; callers cannot tell them apart from an empty result.
func (r *QueryRunner) Run(ctx context.Context, target domain.FID) []domain.FID {
	fids, err := r.RunE(ctx, target)
	if err != nil {
		r.reportFailure(ctx, err)
		return nil
	}
	return fids
}

// RunE is Run with the failure returned instead of logged.
func (r *QueryRunner) RunE(ctx context.Context, target domain.FID) ([]domain.FID, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "cleaner.query_runner"})
	sc := logger.StartSpan(ctx, "cleaner.run_query")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(
		attribute.String("query.id", r.cfg.QueryID),
		attribute.Int64("target.fid", int64(target)),
	)

	fids, err := r.run(ctx, target)
	sc.RecordError(err)
	return fids, err
}

func (r *QueryRunner) run(ctx context.Context, target domain.FID) ([]domain.FID, error) {
	params := map[string]any{r.cfg.ParamName: uint64(target)}

	slog.InfoContext(ctx, "submitting query execution", "query_id", r.cfg.QueryID)
	exec, err := r.analytics.Execute(ctx, r.cfg.QueryID, params)
	if err != nil {
		return nil, &domain.SubmissionError{QueryID: r.cfg.QueryID, Err: err}
	}
	if exec == nil || exec.ID == "" {
		return nil, &domain.SubmissionError{QueryID: r.cfg.QueryID, Err: domain.ErrNoExecutionID}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{ExecutionID: logger.Ptr(exec.ID)})
	slog.InfoContext(ctx, "query execution submitted", "state", exec.State)

	if err := r.waitForCompletion(ctx, exec.ID); err != nil {
		return nil, err
	}

	rows, err := r.analytics.Results(ctx, exec.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch results for execution %s: %w", exec.ID, err)
	}

	fids := extractFIDs(ctx, rows, r.cfg.ResultField)
	slog.InfoContext(ctx, "query results fetched", "rows", len(rows), "fids", len(fids))
	return fids, nil
}

// waitForCompletion polls the execution status at a fixed interval until it
// reaches a success state, a failure state, or the attempt bound.
func (r *QueryRunner) waitForCompletion(ctx context.Context, executionID string) error {
	var (
		fatal     error
		lastState domain.ExecutionState
		attempts  int
	)

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			attempts++
			status, err := r.analytics.Status(ctx, executionID)
			if err != nil {
				fatal = fmt.Errorf("poll execution %s: %w", executionID, err)
				return fatal
			}
			lastState = status.State

			switch {
			case status.State.Succeeded():
				return nil
			case status.State.Failed():
				fatal = &domain.QueryExecutionError{
					ExecutionID: executionID,
					State:       status.State,
					Message:     status.ErrorMessage,
				}
				return fatal
			}
			return errStillRunning
		},
		IsFatalError: func(err error) bool {
			return err != errStillRunning
		},
		NotifyFunc: func(_ error, attempt int) {
			slog.DebugContext(ctx, "query execution still running", "state", lastState, "attempt", attempt)
		},
		Attempts: r.cfg.MaxPollAttempts,
		Delay:    r.cfg.PollInterval,
		Clock:    r.clock,
		Stop:     ctx.Done(),
	})

	switch {
	case err == nil:
		slog.InfoContext(ctx, "query execution completed", "state", lastState, "status_checks", attempts)
		return nil
	case fatal != nil:
		return fatal
	case retry.IsRetryStopped(err):
		return fmt.Errorf("poll execution %s: %w", executionID, ctx.Err())
	case retry.IsAttemptsExceeded(err):
		return &domain.PollTimeoutError{ExecutionID: executionID, Attempts: attempts, LastState: lastState}
	default:
		return fmt.Errorf("poll execution %s: %w", executionID, err)
	}
}

func (r *QueryRunner) reportFailure(ctx context.Context, err error) {
	var (
		apiErr     *httpapi.APIError
		execErr    *domain.QueryExecutionError
		timeoutErr *domain.PollTimeoutError
	)

	switch {
	case errors.As(err, &apiErr):
		slog.ErrorContext(ctx, "analytics request failed",
			"error", err,
			"status_code", apiErr.StatusCode,
			"body", logger.Truncate(apiErr.Body, 500))
		r.console.Error("Analytics request failed with status %d: %s", apiErr.StatusCode, logger.Truncate(apiErr.Body, 200))
	case errors.As(err, &execErr):
		slog.ErrorContext(ctx, "query execution failed",
			"error", err,
			"state", execErr.State)
		r.console.Error("Query execution failed: %v", execErr)
	case errors.As(err, &timeoutErr):
		slog.ErrorContext(ctx, "query execution did not finish",
			"error", err,
			"status_checks", timeoutErr.Attempts)
		r.console.Error("Query execution did not finish: %v", timeoutErr)
	default:
		slog.ErrorContext(ctx, "query failed", "error", err)
		r.console.Error("Query failed: %v", err)
	}
}

// extractFIDs projects field from every row. Rows without a usable value are skipped.
func extractFIDs(ctx context.Context, rows []ports.Row, field string) []domain.FID {
	fids := make([]domain.FID, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		v, ok := row[field]
		if !ok || v == nil {
			skipped++
			slog.WarnContext(ctx, "result row missing field", "row", i, "field", field)
			continue
		}
		fid, err := toFID(v)
		if err != nil {
			skipped++
			slog.WarnContext(ctx, "result row has unusable value", "row", i, "field", field, "error", err)
			continue
		}
		fids = append(fids, fid)
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "skipped result rows", "skipped", skipped, "total", len(rows))
	}
	return fids
}

func toFID(v any) (domain.FID, error) {
	switch t := v.(type) {
	case json.Number:
		return parseFIDString(t.String())
	case string:
		return parseFIDString(t)
	case float64:
		return fidFromFloat(t)
	case int:
		if t < 0 {
			return 0, fmt.Errorf("negative fid %d", t)
		}
		return domain.FID(t), nil
	case int64:
		if t < 0 {
			return 0, fmt.Errorf("negative fid %d", t)
		}
		return domain.FID(t), nil
	case uint64:
		return domain.FID(t), nil
	default:
		return 0, fmt.Errorf("unsupported fid type %T", v)
	}
}

func parseFIDString(s string) (domain.FID, error) {
	s = strings.TrimSpace(s)
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return domain.FID(u), nil
	}
	// Some engines render integer columns as "123.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fid %q", s)
	}
	return fidFromFloat(f)
}

func fidFromFloat(f float64) (domain.FID, error) {
	if f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
		return 0, fmt.Errorf("invalid fid %v", f)
	}
	return domain.FID(f), nil
}
