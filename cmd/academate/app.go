package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/academate/internal/agent"
	"github.com/kalambet/academate/internal/config"
	"github.com/kalambet/academate/internal/dataset"
	"github.com/kalambet/academate/internal/query"
	"github.com/kalambet/academate/internal/session"
	"github.com/kalambet/academate/internal/tools"
)

// app holds the long-lived components shared by the commands.
type app struct {
	cfg      config.Config
	loader   *dataset.Loader
	registry *tools.Registry
	sessions session.Store
	runner   *agent.Runner // nil without an API key

	closers []func() error
}

// newRegistry loads every dataset up front so configuration problems
// surface before the first question.
func newRegistry(ctx context.Context, cfg config.Config) (*dataset.Loader, *tools.Registry, error) {
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, nil, err
	}
	loader := dataset.NewLoader(cfg.Data.Dir, ttl)
	if err := loader.Preload(ctx); err != nil {
		return nil, nil, fmt.Errorf("loading datasets from %s: %w", cfg.Data.Dir, err)
	}
	return loader, tools.NewRegistry(query.NewService(loader)), nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	loader, registry, err := newRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, loader: loader, registry: registry}

	if cfg.Storage.TranscriptDB != "" {
		store, err := session.OpenSQLite(cfg.Storage.TranscriptDB)
		if err != nil {
			return nil, fmt.Errorf("opening transcript store: %w", err)
		}
		a.sessions = store
		a.closers = append(a.closers, store.Close)
		slog.Info("transcripts persisted", "path", cfg.Storage.TranscriptDB)
	} else {
		a.sessions = session.NewMemory()
	}

	if cfg.Agent.APIKey == "" {
		slog.Warn("GOOGLE_API_KEY not set, chat is disabled")
		return a, nil
	}
	policy, err := retryPolicy(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	client := agent.NewClientWithBaseURL(cfg.Agent.APIKey, cfg.Agent.BaseURL).WithRetry(policy)
	a.runner = agent.NewRunner(client, registry, a.sessions, agent.Config{
		Model:         cfg.Agent.Model,
		Temperature:   cfg.Agent.Temperature,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		HistoryWindow: cfg.Agent.HistoryWindow,
	})
	return a, nil
}

func retryPolicy(cfg config.Config) (agent.RetryPolicy, error) {
	initial, err := cfg.RetryInitialDelay()
	if err != nil {
		return agent.RetryPolicy{}, err
	}
	maxDelay, err := cfg.RetryMaxDelay()
	if err != nil {
		return agent.RetryPolicy{}, err
	}
	codes, err := cfg.RetryStatusCodes()
	if err != nil {
		return agent.RetryPolicy{}, err
	}
	return agent.RetryPolicy{
		Attempts:     cfg.Retry.Attempts,
		InitialDelay: initial,
		ExpBase:      cfg.Retry.ExpBase,
		MaxDelay:     maxDelay,
		StatusCodes:  codes,
	}, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("closing", "error", err)
		}
	}
}
