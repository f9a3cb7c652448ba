package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	crmhttp "github.com/Strob0t/AutoCRM/internal/adapter/http"
	crmmcp "github.com/Strob0t/AutoCRM/internal/adapter/mcp"
	crmnats "github.com/Strob0t/AutoCRM/internal/adapter/nats"
	"github.com/Strob0t/AutoCRM/internal/adapter/otel"
	"github.com/Strob0t/AutoCRM/internal/adapter/ws"
	"github.com/Strob0t/AutoCRM/internal/config"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/logger"
	"github.com/Strob0t/AutoCRM/internal/middleware"
	"github.com/Strob0t/AutoCRM/internal/port/a2a"
	"github.com/Strob0t/AutoCRM/internal/port/messagequeue"
	"github.com/Strob0t/AutoCRM/internal/resilience"
	"github.com/Strob0t/AutoCRM/internal/secrets"
	"github.com/Strob0t/AutoCRM/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	vault, err := secrets.NewVault(secrets.ConfigLoader(config.Load))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"llm_provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"llm_api_key", vault.Redacted(secrets.KeyLLMAPIKey),
		"approver_key", vault.Get(secrets.KeyApproverHash) != "",
		"nats", cfg.NATS.URL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	shutdownOTel, err := otel.Init(ctx, cfg.OTel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// NATS is optional: without it trace events only go to websocket clients.
	var (
		queue messagequeue.Queue
		nq    *crmnats.Queue
	)
	if cfg.NATS.URL != "" {
		nq, err = crmnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nq.Close() }()
		queue = nq
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	rawStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	userCache, closeCache, err := openUserCache(ctx, cfg, nq)
	if err != nil {
		return err
	}
	defer closeCache()
	store := newCachedStore(rawStore, userCache, cfg.Cache)

	llms, err := newCompleters(cfg)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	// --- Services ---

	hub := ws.NewHub()
	defer hub.Close()
	tracer := service.NewTracer(hub, queue)

	refunds := service.NewRefundAgent(llms.agent, store, cfg.Approval.Ceiling)
	approvals := service.NewApprovalService(store, refunds, cfg.Approval.Ceiling)
	approvals.SetTracer(tracer)
	approvals.SetMetrics(metrics)

	notifiers, err := alertNotifiers(cfg.Notify)
	if err != nil {
		return err
	}
	alerter := service.NewAlerter(cfg.Server.BaseURL, notifiers...)
	approvals.SetAlerter(alerter)
	if len(notifiers) > 0 {
		slog.Info("operator alerts enabled", "notifiers", len(notifiers))
	}

	engine, err := service.NewEngine(service.NewClassifier(llms.triage), map[workflow.Route]service.Handler{
		workflow.RouteOrder:    service.NewOrderAgent(llms.agent, store).Handle,
		workflow.RouteSecurity: service.NewSecurityAgent(llms.security).Handle,
		workflow.RouteRefund:   refunds.Handle,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	engine.SetSuspender(approvals)
	engine.SetTracer(tracer)
	engine.SetMetrics(metrics)
	engine.SetLimiter(resilience.NewLimiter(cfg.Server.MaxConcurrentRuns))

	seed := service.NewSeedService(store)
	if err := seedIfEmpty(ctx, store, seed); err != nil {
		return err
	}

	if queue != nil {
		cancelDecisions, err := approvals.SubscribeDecisions(ctx, queue)
		if err != nil {
			return fmt.Errorf("decision subscriber: %w", err)
		}
		defer cancelDecisions()
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate)
	idem, err := idempotencyCache(ctx, cfg, nq)
	if err != nil {
		return err
	}

	handlers := &crmhttp.Handlers{
		Engine:     engine,
		Approvals:  approvals,
		Seed:       seed,
		Queue:      queue,
		RunTimeout: cfg.Server.RunTimeout,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(crmhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(crmhttp.SecurityHeaders)
	r.Use(crmhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))

	// The websocket stream is long-lived; keep it outside the limiter.
	r.Get("/ws", hub.HandleWS)

	a2aHandler := a2a.NewHandler(cfg.Server.BaseURL, engine, cfg.Server.RunTimeout)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Use(middleware.Idempotency(idem, cfg.Idempotency.TTL))
		a2aHandler.MountRoutes(r)
		crmhttp.MountRoutes(r, handlers, vault.Getter(secrets.KeyApproverHash))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	var mcpServer *crmmcp.Server
	if cfg.MCP.Enabled {
		mcpServer = crmmcp.NewServer(crmmcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "autocrm",
			Version: "0.1.0",
			APIKey:  vault.Get(secrets.KeyMCPAPIKey),
		}, crmmcp.ServerDeps{Runner: engine, Approvals: approvals})
		if err := mcpServer.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		reloadOnHangup(gctx, vault)
		return nil
	})
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if mcpServer != nil {
			if err := mcpServer.Stop(shutdownCtx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}
		err := srv.Shutdown(shutdownCtx)
		a2aHandler.Wait()
		alerter.Wait()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// reloadOnHangup re-reads rotatable credentials on SIGHUP until ctx ends.
// Only the approver key hash is consulted per request; the LLM and MCP keys
// still need a restart.
func reloadOnHangup(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded")
		}
	}
}
