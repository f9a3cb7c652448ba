package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/AutoCRM/internal/adapter/cached"
	"github.com/Strob0t/AutoCRM/internal/adapter/litellm"
	"github.com/Strob0t/AutoCRM/internal/adapter/memory"
	crmnats "github.com/Strob0t/AutoCRM/internal/adapter/nats"
	"github.com/Strob0t/AutoCRM/internal/adapter/natskv"
	"github.com/Strob0t/AutoCRM/internal/adapter/openai"
	"github.com/Strob0t/AutoCRM/internal/adapter/postgres"
	"github.com/Strob0t/AutoCRM/internal/adapter/ristretto"
	"github.com/Strob0t/AutoCRM/internal/adapter/sqlite"
	"github.com/Strob0t/AutoCRM/internal/adapter/tiered"
	"github.com/Strob0t/AutoCRM/internal/config"
	"github.com/Strob0t/AutoCRM/internal/domain"
	"github.com/Strob0t/AutoCRM/internal/port/cache"
	"github.com/Strob0t/AutoCRM/internal/port/database"
	"github.com/Strob0t/AutoCRM/internal/port/llm"
	"github.com/Strob0t/AutoCRM/internal/port/notifier"
	"github.com/Strob0t/AutoCRM/internal/resilience"
	"github.com/Strob0t/AutoCRM/internal/service"
)

// openStore connects the configured store driver. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("postgres connected")
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
		return postgres.NewStore(pool), pool.Close, nil

	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		slog.Info("sqlite opened", "path", cfg.SQLite.Path)
		return s, func() { _ = s.Close() }, nil

	case "memory":
		slog.Info("using in-memory store")
		return memory.NewStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// openUserCache builds the user record cache: ristretto in process, backed by
// a NATS KV bucket when a queue is connected.
func openUserCache(ctx context.Context, cfg *config.Config, nq *crmnats.Queue) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB<<20, 256)
	if err != nil {
		return nil, nil, fmt.Errorf("l1 cache: %w", err)
	}
	if nq == nil {
		return l1, l1.Close, nil
	}
	l2, err := natskv.Open(ctx, nq.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		l1.Close()
		return nil, nil, fmt.Errorf("l2 cache: %w", err)
	}
	return tiered.New(l1, l2, cfg.Cache.L1TTL), l1.Close, nil
}

func newCachedStore(inner database.Store, c cache.Cache, cfg config.Cache) database.Store {
	return cached.NewStore(inner, c, cfg.L1TTL)
}

// idempotencyCache keeps recorded responses in a NATS KV bucket so replays
// survive restarts, or in process when NATS is disabled.
func idempotencyCache(ctx context.Context, cfg *config.Config, nq *crmnats.Queue) (cache.Cache, error) {
	if nq == nil {
		c, err := ristretto.New(cfg.Cache.L1MaxSizeMB<<20, 1024)
		if err != nil {
			return nil, fmt.Errorf("idempotency cache: %w", err)
		}
		return c, nil
	}
	kv, err := natskv.Open(ctx, nq.JetStream(), cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency bucket: %w", err)
	}
	return kv, nil
}

// completers holds one client per sampling temperature.
type completers struct {
	triage   llm.Completer
	security llm.Completer
	agent    llm.Completer
}

func newCompleters(cfg *config.Config) (*completers, error) {
	breaker := resilience.NewBreaker("llm", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	switch cfg.LLM.Provider {
	case "litellm":
		c := litellm.NewClient(cfg.LLM.URL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
		c.SetBreaker(breaker)
		return &completers{
			triage:   c.WithTemperature(cfg.LLM.TriageTemperature),
			security: c.WithTemperature(cfg.LLM.SecurityTemperature),
			agent:    c.WithTemperature(cfg.LLM.AgentTemperature),
		}, nil

	case "openai":
		c, err := openai.NewClient(openai.Config{
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
			RetryDelay: cfg.LLM.RetryDelay,
		})
		if err != nil {
			return nil, err
		}
		c.SetBreaker(breaker)
		return &completers{
			triage:   c.WithTemperature(cfg.LLM.TriageTemperature),
			security: c.WithTemperature(cfg.LLM.SecurityTemperature),
			agent:    c.WithTemperature(cfg.LLM.AgentTemperature),
		}, nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
}

// seedIfEmpty loads the demo fixtures when the store has no users yet.
func seedIfEmpty(ctx context.Context, store database.Store, seed *service.SeedService) error {
	_, err := store.GetUser(ctx, 1)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		if err := seed.Reset(ctx); err != nil {
			return fmt.Errorf("initial seed: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("check seed: %w", err)
	}
}

// alertNotifiers builds a notifier for every configured webhook.
func alertNotifiers(cfg config.Notify) ([]notifier.Notifier, error) {
	urls := map[string]string{
		"slack":   cfg.SlackWebhookURL,
		"discord": cfg.DiscordWebhookURL,
	}
	var out []notifier.Notifier
	for _, name := range notifier.Available() {
		url := urls[name]
		if url == "" {
			continue
		}
		n, err := notifier.New(name, url)
		if err != nil {
			return nil, fmt.Errorf("notifier %s: %w", name, err)
		}
		out = append(out, n)
	}
	return out, nil
}
