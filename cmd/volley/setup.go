package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/volley/internal/admission"
	"github.com/torosent/volley/internal/auth"
	"github.com/torosent/volley/internal/config"
	"github.com/torosent/volley/internal/executor"
	"github.com/torosent/volley/internal/extractor"
	"github.com/torosent/volley/internal/feeder"
	"github.com/torosent/volley/internal/httpclient"
	"github.com/torosent/volley/internal/logging"
	"github.com/torosent/volley/internal/metrics"
	"github.com/torosent/volley/internal/tracing"
	"github.com/torosent/volley/internal/workqueue"
)

// runParts are the components a run is assembled from.
type runParts struct {
	queue     *workqueue.Queue
	gate      *admission.Controller
	executor  *executor.Executor
	collector *metrics.Collector
	auth      auth.Provider
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}

func assemble(cfg *config.Config, provider *tracing.Provider, logger *zap.Logger) (*runParts, error) {
	tmpl, err := buildTemplate(cfg)
	if err != nil {
		return nil, err
	}

	gate, err := admission.New(admission.Options{
		Concurrency: cfg.Concurrency,
		Delay:       cfg.InterBatchDelay,
		Mode:        cfg.Pacing,
		Anchor:      cfg.PaceFrom,
		OnEpoch: func(epoch uint64, start time.Time) {
			logger.Debug("epoch opened", zap.Uint64("epoch", epoch), zap.Time("start", start))
		},
	})
	if err != nil {
		return nil, err
	}

	snippet, err := extractor.New(cfg.Snippet.Path, cfg.Snippet.Regex, logger.Sugar())
	if err != nil {
		return nil, err
	}

	authProvider, err := newAuthProvider(cfg.Auth)
	if err != nil {
		return nil, err
	}

	execOpts := executor.Options{
		Timeout:   cfg.Timeout,
		Snippet:   snippet,
		Retry:     executor.RetryPolicy{Retries: cfg.Retries},
		Propagate: provider.ShouldPropagate(),
		Logger:    logger,
		LogErrors: cfg.LogErrors,
		Auth:      authProvider,
	}
	if cfg.Tracing.Enabled() {
		execOpts.Tracer = provider.Tracer()
	}

	return &runParts{
		queue:     workqueue.New(uint64(cfg.Total), tmpl),
		gate:      gate,
		executor:  executor.New(execOpts),
		collector: metrics.NewCollector(),
		auth:      authProvider,
	}, nil
}

// close releases the auth provider, if any.
func (p *runParts) close() error {
	if p.auth == nil {
		return nil
	}
	return p.auth.Close()
}

// newAuthProvider returns nil when no auth is configured.
func newAuthProvider(cfg config.AuthConfig) (auth.Provider, error) {
	switch cfg.Type {
	case config.AuthNone:
		return nil, nil
	case config.AuthStatic:
		return auth.NewStaticTokenProvider(cfg.StaticToken), nil
	case config.AuthOAuth2ClientCredentials:
		p, err := auth.NewClientCredentialsProvider(auth.ClientCredentialsConfig{
			TokenURL:            cfg.TokenURL,
			ClientID:            cfg.ClientID,
			ClientSecret:        cfg.ClientSecret,
			Scopes:              cfg.Scopes,
			RefreshBeforeExpiry: cfg.RefreshBeforeExpiry,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}
}

func buildTemplate(cfg *config.Config) (workqueue.Template, error) {
	body, err := httpclient.LoadBody(cfg.Body, cfg.BodyFile)
	if err != nil {
		return workqueue.Template{}, err
	}

	tmpl := workqueue.Template{
		Target:          cfg.TargetURL,
		Method:          cfg.Method,
		Headers:         cfg.Headers,
		Body:            body,
		RequestIDHeader: cfg.RequestIDHeader,
	}

	if cfg.Feeder.Path != "" {
		ds, err := feeder.Load(cfg.Feeder.Path, cfg.Feeder.Type)
		if err != nil {
			return workqueue.Template{}, err
		}
		tmpl.Dataset = ds
	}
	return tmpl, nil
}
