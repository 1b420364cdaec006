package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"

	"unfollowcleaner/internal/adapters/console"
	"unfollowcleaner/internal/adapters/dune"
	"unfollowcleaner/internal/adapters/neynar"
	"unfollowcleaner/internal/config"
	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/logger"
	"unfollowcleaner/internal/service"
	"unfollowcleaner/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	targetFlag := flag.String("target-fid", "", "FID whose follows are cleaned (overrides TARGET_FID)")
	dryRun := flag.Bool("dry-run", false, "Show flagged accounts without unfollowing")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	if *targetFlag != "" {
		if err := os.Setenv("TARGET_FID", *targetFlag); err != nil {
			return fmt.Errorf("set TARGET_FID: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Usage: cleaner-cli [-target-fid <fid>] [-dry-run] [-no-color]")
		fmt.Fprintln(os.Stderr, "\nRequired environment: DUNE_API_KEY, DUNE_QUERY_ID, NEYNAR_API_KEY, SIGNER_UUID, TARGET_FID")
		return fmt.Errorf("load config: %w", err)
	}

	// Operator messages go to stdout; structured logs to stderr.
	logger.Setup(os.Stderr, logger.Options{JSON: cfg.IsProduction(), Debug: cfg.IsDevelopment()})
	term := console.New(os.Stdin, os.Stdout, *noColor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		term.Warn("Received interrupt signal, cancelling...")
	}()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.WarnContext(ctx, "telemetry disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	analytics := dune.NewClient(cfg.Dune.BaseURL, cfg.Dune.APIKey, cfg.HTTP.Timeout)
	follows := neynar.NewClient(cfg.Neynar.BaseURL, cfg.Neynar.APIKey, cfg.HTTP.Timeout)

	runner := service.NewQueryRunner(analytics, term, service.QueryRunnerConfig{
		QueryID:         cfg.Dune.QueryID,
		ParamName:       cfg.Dune.ParamName,
		ResultField:     cfg.Dune.ResultField,
		PollInterval:    cfg.Polling.Interval,
		MaxPollAttempts: cfg.Polling.MaxAttempts,
	}, clock.WallClock)
	actuator := service.NewActuator(follows, term, service.ActuatorConfig{
		SignerUUID:     cfg.Neynar.SignerUUID,
		BatchSize:      cfg.Batch.Size,
		MaxConcurrency: cfg.Batch.MaxConcurrency,
	})
	orchestrator := service.NewOrchestrator(runner, actuator, term, *dryRun)

	term.Info("=== Unfollow Cleaner ===")
	term.Info("Target FID: %d", cfg.TargetFID)

	result, err := orchestrator.Run(ctx, cfg.TargetFID)
	if result != nil {
		printSummary(term, result)
	}
	if errors.Is(err, context.Canceled) {
		term.Warn("Run cancelled.")
		return nil
	}
	return err
}

func printSummary(term *console.Terminal, result *domain.RunResult) {
	if !result.Confirmed {
		return
	}

	term.Info("=== Run Summary ===")
	term.Info("Run ID:       %s", result.RunID)
	term.Info("Flagged:      %d", len(result.Flagged))
	term.Info("Batches:      %d", len(result.Outcomes))
	term.Info("Completed At: %s", result.CompletedAt.Format(time.RFC3339))

	failed := result.CountByStatus(domain.BatchFailed)
	partial := result.CountByStatus(domain.BatchPartial)
	switch {
	case failed == 0 && partial == 0:
		term.Success("Unfollowed %d accounts in %d batches.", result.Unfollowed(), len(result.Outcomes))
	case result.Unfollowed() > 0:
		term.Warn("Unfollowed %d of %d accounts (%d partial, %d failed batches).",
			result.Unfollowed(), len(result.Flagged), partial, failed)
	default:
		term.Error("No accounts were unfollowed; all %d batches failed.", failed)
	}
}
