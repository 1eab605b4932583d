package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/torosent/volley/internal/config"
	"github.com/torosent/volley/internal/dashboard"
	"github.com/torosent/volley/internal/output"
	"github.com/torosent/volley/internal/promstats"
	"github.com/torosent/volley/internal/runner"
	"github.com/torosent/volley/internal/threshold"
	"github.com/torosent/volley/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

var (
	// ErrRunCancelled is returned when the run was interrupted before every
	// request was issued. The summary is still printed.
	ErrRunCancelled = errors.New("run cancelled")
	// ErrThresholdsFailed is returned when at least one threshold did not pass.
	ErrThresholdsFailed = errors.New("thresholds failed")
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		if shutdownErr := provider.Shutdown(shutdownCtx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("tracing shutdown: %w", shutdownErr))
		}
	}()

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	parts, err := assemble(cfg, provider, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, parts.close())
	}()

	// Human-facing lines go to stderr when stdout carries a machine-readable summary.
	display := stdout
	if cfg.Format != "" && cfg.Format != config.FormatText {
		display = stderr
	}

	info := runInfo(cfg)
	output.PrintBanner(display, info)

	observers := make([]runner.Observer, 0, 2)
	if !cfg.Quiet && !cfg.Dashboard {
		observers = append(observers, output.NewProgressPrinter(display, uint64(cfg.Total)))
	}

	var exporter *promstats.Exporter
	if cfg.Metrics.PushGateway != "" {
		exporter = promstats.New(parts.collector.RunID())
		observers = append(observers, exporter)
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(parts.collector, dashboardConfig(cfg), cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if cfg.Quiet && !cfg.Dashboard {
		progress = output.NewProgressReporter(parts.collector, uint64(cfg.Total), progressInterval, stderr)
		progress.Start()
	}

	r := runner.New(runner.Options{
		Queue:     parts.queue,
		Admission: parts.gate,
		Executor:  parts.executor,
		Collector: parts.collector,
		Observers: observers,
		Logger:    logger,
	})

	result, runErr := r.Run(ctx)

	if progress != nil {
		progress.Stop()
	}
	if dash != nil {
		dash.Stop()
	}
	if runErr != nil {
		return runErr
	}

	summary := result.Summary
	if err := output.WriteReport(stdout, cfg.Format, summary); err != nil {
		return err
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(summary)
	output.PrintThresholdResults(display, results)

	var errs error
	if cfg.SummaryFile != "" {
		errs = multierr.Append(errs, output.WriteSummaryFile(cfg.SummaryFile, summary))
	}
	if cfg.HTMLOutput != "" {
		errs = multierr.Append(errs, output.WriteFile(cfg.HTMLOutput, func(w io.Writer) error {
			return output.GenerateHTMLReport(w, summary, results, info)
		}))
	}
	if exporter != nil {
		pushCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		errs = multierr.Append(errs, exporter.Push(pushCtx, cfg.Metrics.PushGateway, cfg.Metrics.Job))
		done()
	}
	for _, e := range multierr.Errors(errs) {
		logger.Error("post-run step failed", zap.Error(e))
	}

	if result.State == runner.StateCancelled {
		errs = multierr.Append(errs, ErrRunCancelled)
	}
	if !threshold.AllPassed(results) {
		errs = multierr.Append(errs, ErrThresholdsFailed)
	}
	return errs
}

func runInfo(cfg *config.Config) output.RunInfo {
	return output.RunInfo{
		Target:      cfg.TargetURL,
		Method:      cfg.Method,
		Total:       uint64(cfg.Total),
		Concurrency: cfg.Concurrency,
		Delay:       cfg.InterBatchDelay,
		Pacing:      string(cfg.Pacing),
		PaceFrom:    string(cfg.PaceFrom),
	}
}

func dashboardConfig(cfg *config.Config) dashboard.RunConfig {
	return dashboard.RunConfig{
		Target:      cfg.TargetURL,
		Method:      cfg.Method,
		Total:       uint64(cfg.Total),
		Concurrency: cfg.Concurrency,
		Delay:       cfg.InterBatchDelay,
		Pacing:      string(cfg.Pacing),
		Timeout:     cfg.Timeout,
		Retries:     cfg.Retries,
		ConfigFile:  cfg.ConfigFile,
	}
}
