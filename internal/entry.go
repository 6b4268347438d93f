// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/applier"
	"github.com/starford/raido/internal/fileservice"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/metrics"
	"github.com/starford/raido/internal/organizer"
	"github.com/starford/raido/internal/scanner"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/suggest"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{mode: ModePoll, version: "dev", logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := ValidateMode(app.mode); err != nil {
		return nil, err
	}
	return app, nil
}

// newLogger installs the structured JSON logger. When a log file is
// configured every line goes to out and to the file.
func newLogger(cfg ApplicationConfig, out io.Writer) (*slog.Logger, func(), error) {
	closeFn := func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(out, f)
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// passConfirmer picks how pass actions are confirmed: auto_confirm approves
// everything, an interactive terminal is asked, anything else declines.
func passConfirmer(cfg OrganizerConfig, logger *slog.Logger) applier.Confirmer {
	if cfg.AutoConfirm {
		return applier.AutoConfirm()
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return applier.NewPrompt(os.Stdin, os.Stderr)
	}
	logger.Warn("stdin is not a terminal and auto_confirm is off: every action will be declined")
	return applier.DeclineAll()
}

type components struct {
	catalog   *index.DB
	scanner   *scanner.Scanner
	organizer *organizer.Organizer
	service   *fileservice.Service
}

func (c *components) close() {
	if c.catalog != nil {
		_ = c.catalog.Close()
	}
}

// build wires scanner, suggestion provider, appliers, catalog and organizer.
// Passes confirm through confirmer; explicit tool requests always proceed.
func build(cfg *Config, confirmer applier.Confirmer, logger *slog.Logger, orgOpts ...organizer.Option) (*components, error) {
	dsn := index.Memory
	if cfg.Index.Enabled {
		dsn = cfg.Index.Path
	}
	db, err := index.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	sc := scanner.New(cfg.Organizer.MonitorFolders, cfg.Organizer.PreviewChars, logger)

	llm := suggest.NewLLM(suggest.LLMConfig{
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		Timeout:      cfg.LLM.Timeout,
		JSONMode:     cfg.LLM.JSONMode,
		MaxFailures:  cfg.LLM.MaxFailures,
		Cooldown:     cfg.LLM.Cooldown,
		CustomPrompt: cfg.LLM.CustomPrompt,
	}, logger)
	var provider suggest.Provider = llm
	if cfg.Index.Enabled {
		provider = suggest.NewCached(llm, db, logger)
	}

	store := storage.NewFS()
	root := scanner.ExpandHome(cfg.Organizer.RootFolder)
	policy := applier.ConflictPolicy(cfg.Organizer.ConflictPolicy)
	newApplier := func(c applier.Confirmer) *applier.Applier {
		return applier.New(store,
			applier.WithRoot(root),
			applier.WithConfirmer(c),
			applier.WithConflictPolicy(policy),
			applier.WithLogger(logger))
	}

	opts := []organizer.Option{
		organizer.WithCatalog(db),
		organizer.WithDryRun(cfg.Organizer.DryRun),
		organizer.WithDebounce(cfg.Organizer.WatchDebounce),
		organizer.WithLogger(logger),
	}
	if cfg.Organizer.RecentOutcomes > 0 {
		opts = append(opts, organizer.WithRecent(cfg.Organizer.RecentOutcomes))
	}
	org := organizer.New(sc, provider, newApplier(confirmer), append(opts, orgOpts...)...)

	svc := fileservice.NewService(db, org, sc, provider, newApplier(applier.AutoConfirm()))
	return &components{catalog: db, scanner: sc, organizer: org, service: svc}, nil
}

// Run starts the organizer in the configured mode, plus the HTTP API in
// poll and watch modes.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.logOut)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("Configuration loaded",
		slog.String("mode", app.mode),
		slog.Any("monitor_folders", cfg.Organizer.MonitorFolders),
		slog.String("root_folder", cfg.Organizer.RootFolder),
		slog.Bool("dry_run", cfg.Organizer.DryRun),
		slog.Bool("auto_confirm", cfg.Organizer.AutoConfirm),
		slog.String("conflict_policy", cfg.Organizer.ConflictPolicy),
		slog.String("llm_model", cfg.LLM.Model),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api_key is empty: requests may be rejected and files left as they are")
	}

	confirmer := app.confirmer
	if confirmer == nil {
		confirmer = passConfirmer(cfg.Organizer, logger)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := build(cfg, confirmer, logger,
		organizer.WithOutcomeHook(broker.PublishOutcome),
		organizer.WithPassHook(func(s organizer.Summary, finished bool) {
			typ := sse.TypePassStarted
			if finished {
				typ = sse.TypePassFinished
			}
			broker.Publish(sse.Event{Type: typ, Data: s})
		}),
	)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	var httpServer *http.Server
	if cfg.App.HTTP.Enabled && app.mode != ModeOnce {
		httpServer = &http.Server{
			Addr:              cfg.App.HTTP.Address(),
			Handler:           newHTTPHandler(gCtx, cfg, c, broker),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	// Organizer loop. Returning ends the application.
	g.Go(func() error {
		defer cancel()
		switch app.mode {
		case ModeOnce:
			sum, err := c.organizer.RunPass(gCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("pass: %w", err)
			}
			logger.Info("Single pass finished", slog.String("pass", sum.ID), slog.Int("scanned", sum.Scanned))
			return nil
		case ModeWatch:
			return c.organizer.Watch(gCtx)
		default:
			return c.organizer.Poll(gCtx, cfg.Organizer.CheckInterval)
		}
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}

		if httpServer != nil {
			logger.Info("Shutting down server...")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}

// newHTTPHandler builds the root router: unauthenticated health and metrics
// endpoints plus the API under /api.
func newHTTPHandler(ctx context.Context, cfg *Config, c *components, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for _, dir := range c.scanner.Folders() {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"status":"ok"}`))
				return
			}
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"no monitor folder available"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", api.NewRouter(ctx, c.service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

// RunMCP serves the MCP tools on stdio until the client disconnects. Logs go
// to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(app.config.App, app.logOut)
	if err != nil {
		return err
	}
	defer closeLog()

	// Passes are never started from MCP; apply_suggestion uses its own
	// auto-confirming applier, as the caller has already decided.
	c, err := build(app.config, applier.DeclineAll(), logger)
	if err != nil {
		return err
	}
	defer c.close()

	logger.Info("Serving MCP on stdio", slog.String("version", app.version))
	srv := mcpserver.New(c.service, app.version)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
