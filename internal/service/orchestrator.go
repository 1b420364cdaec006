package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/core/ports"
	"unfollowcleaner/internal/logger"
)

// Orchestrator coordinates the cleanup workflow: query, confirm, unfollow.
type Orchestrator struct {
	runner   *QueryRunner
	actuator *Actuator
	console  ports.Console
	dryRun   bool
}

// NewOrchestrator creates a new Orchestrator. In dry-run mode the flagged list
// is shown but no confirmation is asked and nothing is unfollowed.
func NewOrchestrator(runner *QueryRunner, actuator *Actuator, console ports.Console, dryRun bool) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		actuator: actuator,
		console:  console,
		dryRun:   dryRun,
	}
}

// Run executes one complete cleanup for the target FID. The returned error is
// only set when ctx was cancelled.
func (o *Orchestrator) Run(ctx context.Context, target domain.FID) (*domain.RunResult, error) {
	runID := uuid.New().String()
	result := &domain.RunResult{
		RunID:     runID,
		TargetFID: target,
		DryRun:    o.dryRun,
		StartedAt: time.Now().UTC(),
	}
	defer func() { result.CompletedAt = time.Now().UTC() }()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     logger.Ptr(runID),
		TargetFID: logger.Ptr(uint64(target)),
		Component: "cleaner.orchestrator",
	})
	sc := logger.StartSpan(ctx, "cleaner.run")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(attribute.String("run.id", runID), attribute.Bool("run.dry_run", o.dryRun))

	slog.InfoContext(ctx, "starting cleanup run", "dry_run", o.dryRun)
	o.console.Info("Querying flagged accounts for FID %d...", target)

	fids := o.runner.Run(ctx, target)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	result.Flagged = fids

	if len(fids) == 0 {
		slog.InfoContext(ctx, "no flagged accounts")
		o.console.Warn("No flagged accounts found for FID %d; nothing to do.", target)
		return result, nil
	}
	o.console.Info("Found %d flagged accounts.", len(fids))

	if o.dryRun {
		for _, line := range FormatFIDs(fids, fidsPerLine) {
			o.console.Info("%s", line)
		}
		o.console.Warn("Dry run: no unfollow requests were sent.")
		return result, nil
	}

	if !Confirm(ctx, o.console, fids) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		slog.InfoContext(ctx, "run aborted by operator", "flagged", len(fids))
		o.console.Warn("Aborted. No accounts were unfollowed.")
		return result, nil
	}
	result.Confirmed = true

	result.Outcomes = o.actuator.Execute(ctx, fids)

	slog.InfoContext(ctx, "cleanup run finished",
		"batches", len(result.Outcomes),
		"succeeded", result.CountByStatus(domain.BatchSucceeded),
		"partial", result.CountByStatus(domain.BatchPartial),
		"failed", result.CountByStatus(domain.BatchFailed),
		"unfollowed", result.Unfollowed())

	return result, ctx.Err()
}
