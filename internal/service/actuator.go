package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"unfollowcleaner/internal/config"
	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/core/ports"
	"unfollowcleaner/internal/logger"
)

// errRejected is recorded when the service answers without error but reports failure.
var errRejected = errors.New("relationship service reported failure")

// ActuatorConfig controls how the flagged FIDs are batched and dispatched.
type ActuatorConfig struct {
	SignerUUID     string
	BatchSize      int
	MaxConcurrency int
}

// Actuator removes follow relationships in bounded-size batches with a bounded
// number of requests in flight.
type Actuator struct {
	follows ports.FollowManager
	console ports.Console
	cfg     ActuatorConfig
}

// NewActuator creates a new Actuator. Sizes outside the accepted range fall
// back to 100 targets per batch and 5 requests in flight.
func NewActuator(follows ports.FollowManager, console ports.Console, cfg ActuatorConfig) *Actuator {
	if cfg.BatchSize <= 0 || cfg.BatchSize > config.MaxBatchSize {
		cfg.BatchSize = config.MaxBatchSize
	}
	if cfg.MaxConcurrency <= 0 || cfg.MaxConcurrency > config.MaxConcurrency {
		cfg.MaxConcurrency = config.MaxConcurrency
	}
	return &Actuator{
		follows: follows,
		console: console,
		cfg:     cfg,
	}
}

// Execute sends one unfollow request per batch and waits for all of them to
// settle. A failed batch does not stop the others. Outcomes are returned in
// batch order. An empty list sends nothing.
func (a *Actuator) Execute(ctx context.Context, fids []domain.FID) []domain.BatchOutcome {
	if len(fids) == 0 {
		return nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "cleaner.actuator"})
	batches := Chunk(fids, a.cfg.BatchSize)
	outcomes := make([]domain.BatchOutcome, len(batches))

	slog.InfoContext(ctx, "dispatching unfollow batches",
		"fids", len(fids),
		"batches", len(batches),
		"max_concurrency", a.cfg.MaxConcurrency)

	sem := semaphore.NewWeighted(int64(a.cfg.MaxConcurrency))
	var wg sync.WaitGroup

	for i, batch := range batches {
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			// Cancelled while waiting for a slot; nothing after this point is sent.
			for _, rest := range batches[i:] {
				outcomes[rest.Index] = a.settle(ctx, rest, nil, fmt.Errorf("not dispatched: %w", err))
			}
			break
		}

		wg.Add(1)
		go func(batch domain.Batch) {
			defer wg.Done()
			defer sem.Release(1)

			outcomes[batch.Index] = a.dispatch(ctx, batch)
		}(batch)
	}

	wg.Wait()
	return outcomes
}

func (a *Actuator) dispatch(ctx context.Context, batch domain.Batch) domain.BatchOutcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Batch: logger.Ptr(batch.Index)})
	sc := logger.StartSpan(ctx, "cleaner.delete_batch")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(
		attribute.Int("batch.index", batch.Index),
		attribute.Int("batch.size", len(batch.FIDs)),
	)

	start := time.Now()
	res, err := a.follows.Unfollow(ctx, a.cfg.SignerUUID, batch.FIDs)
	sc.RecordError(err)

	slog.DebugContext(ctx, "unfollow request settled", "duration_ms", time.Since(start).Milliseconds())
	return a.settle(ctx, batch, res, err)
}

// settle classifies a response and reports it.
func (a *Actuator) settle(ctx context.Context, batch domain.Batch, res *ports.UnfollowResult, err error) domain.BatchOutcome {
	outcome := Classify(batch, res, err)
	n := batch.Index + 1

	switch outcome.Status {
	case domain.BatchSucceeded:
		slog.InfoContext(ctx, "batch unfollowed", "batch", batch.Index, "count", outcome.Succeeded)
		a.console.Success("Batch %d: unfollowed %d accounts", n, outcome.Succeeded)
	case domain.BatchPartial:
		slog.WarnContext(ctx, "batch partially unfollowed",
			"batch", batch.Index,
			"succeeded", outcome.Succeeded,
			"failed", outcome.Failed)
		a.console.Warn("Batch %d: partial success, %d unfollowed, %d failed", n, outcome.Succeeded, outcome.Failed)
	default:
		slog.ErrorContext(ctx, "batch failed", "batch", batch.Index, "count", len(batch.FIDs), "error", outcome.Err)
		a.console.Error("Batch %d: failed to unfollow %d accounts: %v", n, len(batch.FIDs), outcome.Err)
	}
	return outcome
}

// Classify turns a relationship-service response into a BatchOutcome. When the
// service reports per-target details they decide the counts; otherwise the
// top-level success flag applies to the whole batch.
func Classify(batch domain.Batch, res *ports.UnfollowResult, err error) domain.BatchOutcome {
	outcome := domain.BatchOutcome{Batch: batch}

	switch {
	case err != nil:
		outcome.Err = err
	case res == nil:
		outcome.Err = errRejected
	case len(res.Details) > 0:
		for _, d := range res.Details {
			if d.Success {
				outcome.Succeeded++
			} else {
				outcome.Failed++
			}
		}
		switch {
		case outcome.Failed == 0:
			outcome.Status = domain.BatchSucceeded
		case outcome.Succeeded > 0:
			outcome.Status = domain.BatchPartial
		default:
			outcome.Err = errRejected
		}
		if outcome.Status != "" {
			return outcome
		}
	case res.Success:
		outcome.Status = domain.BatchSucceeded
		outcome.Succeeded = len(batch.FIDs)
		return outcome
	default:
		outcome.Err = errRejected
	}

	outcome.Status = domain.BatchFailed
	outcome.Succeeded = 0
	outcome.Failed = len(batch.FIDs)
	return outcome
}

// Chunk splits fids into consecutive batches of at most size elements,
// preserving order. The last batch may be shorter.
func Chunk(fids []domain.FID, size int) []domain.Batch {
	if size <= 0 {
		size = config.MaxBatchSize
	}

	batches := make([]domain.Batch, 0, (len(fids)+size-1)/size)
	for i, start := 0, 0; start < len(fids); i, start = i+1, start+size {
		end := min(start+size, len(fids))
		batches = append(batches, domain.Batch{Index: i, FIDs: fids[start:end:end]})
	}
	return batches
}
