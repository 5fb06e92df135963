// Command inbot is the main entry point for the Inbot report intake server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
	"github.com/xpandai03/inbot-ai-sub000/internal/config"
	"github.com/xpandai03/inbot-ai-sub000/internal/extract"
	"github.com/xpandai03/inbot-ai-sub000/internal/guided"
	"github.com/xpandai03/inbot-ai-sub000/internal/health"
	"github.com/xpandai03/inbot-ai-sub000/internal/intake"
	"github.com/xpandai03/inbot-ai-sub000/internal/notify"
	"github.com/xpandai03/inbot-ai-sub000/internal/observe"
	"github.com/xpandai03/inbot-ai-sub000/internal/record"
	"github.com/xpandai03/inbot-ai-sub000/internal/resilience"
	"github.com/xpandai03/inbot-ai-sub000/pkg/provider/llm"
	"github.com/xpandai03/inbot-ai-sub000/pkg/provider/llm/anyllm"
	oaillm "github.com/xpandai03/inbot-ai-sub000/pkg/provider/llm/openai"
)

const defaultListenAddr = ":8080"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "inbot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "inbot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so config reloads can change it without
	// rebuilding the handler.
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	slog.Info("inbot starting",
		"config", *configPath,
		"listen_addr", listenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "inbot"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── LLM provider (optional) ───────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	provider, err := buildLLMProvider(cfg, reg)
	if err != nil {
		slog.Error("failed to build LLM provider", "err", err)
		return 1
	}

	// ── Report store ──────────────────────────────────────────────────────────
	var (
		store record.Store
		pool  *pgxpool.Pool
	)
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		pool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()

		pg := record.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate report schema", "err", err)
			return 1
		}
		store = pg
		slog.Info("report store ready", "backend", "postgres")
	} else {
		store = record.NewMemStore()
		slog.Info("report store ready", "backend", "memory")
	}

	// ── Intake pipeline ───────────────────────────────────────────────────────
	extractor := extract.NewExtractor()

	classifier := classify.New(provider, classify.Config{
		Timeout: cfg.Classifier.Timeout.Std(),
		Breaker: resilience.CircuitBreakerConfig{
			Name:         "classifier",
			MaxFailures:  cfg.Classifier.MaxFailures,
			ResetTimeout: cfg.Classifier.ResetTimeout.Std(),
		},
	})

	engine := guided.NewEngine(
		guided.NewMemStore(cfg.Session.MaxEntries),
		extractor,
		guided.Config{
			TTL:           cfg.Session.TTL.Std(),
			SweepInterval: cfg.Session.SweepInterval.Std(),
		},
	)
	go engine.SweepLoop(ctx)

	dispatcher := notify.NewLogDispatcher(notifyTargets(cfg.Notify.Targets), cfg.Notify.DefaultTarget)

	svc := intake.NewService(store, extractor, classifier, engine,
		intake.Config{MaxConcurrentClassifications: cfg.Classifier.MaxConcurrent},
		intake.WithDispatcher(dispatcher),
		intake.WithMetrics(metrics),
	)

	// ── Config hot reload ─────────────────────────────────────────────────────
	// Log level and notification routing can change without a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			levelVar.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		if diff.NotifyChanged {
			dispatcher.UpdateTargets(notifyTargets(new.Notify.Targets), new.Notify.DefaultTarget)
			for _, tc := range diff.TargetChanges {
				slog.Info("notification target changed",
					"department", tc.Department,
					"target", tc.NewTarget,
					"added", tc.Added,
					"removed", tc.Removed,
				)
			}
		}
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server (metrics + health probes) ─────────────────────────────────
	var checkers []health.Checker
	if pool != nil {
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: pool.Ping,
		})
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	printStartupSummary(cfg, listenAddr)
	slog.Info("server ready — press Ctrl+C to shut down")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("http server error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}

	// Let in-flight classification finish before the store goes away.
	svc.Wait()

	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in LLM provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-direct uses the official SDK instead of the any-llm bridge, for
	// deployments that need organization headers or per-request timeouts.
	reg.RegisterLLM("openai-direct", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		if raw := optString(entry.Options, "timeout"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("parse openai-direct timeout %q: %w", raw, err)
			}
			opts = append(opts, oaillm.WithTimeout(d))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, name := range config.ValidProviderNames {
		slog.Debug("registered provider", "kind", "llm", "name", name)
	}
}

// buildLLMProvider instantiates the configured LLM provider, if any. A nil
// provider means classification runs on the rule tables alone.
func buildLLMProvider(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	name := cfg.Classifier.Provider.Name
	if name == "" {
		slog.Info("no LLM provider configured — classification uses rules only")
		return nil, nil
	}

	p, err := reg.CreateLLM(cfg.Classifier.Provider)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("unknown LLM provider — classification uses rules only", "name", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Classifier.Provider.Model)
	return p, nil
}

// notifyTargets converts the config's department keys into typed map keys.
// Validation has already rejected unknown departments.
func notifyTargets(targets map[string]string) map[classify.Department]string {
	if len(targets) == 0 {
		return nil
	}
	out := make(map[classify.Department]string, len(targets))
	for dept, target := range targets {
		out[classify.Department(dept)] = target
	}
	return out
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, listenAddr string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Inbot — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("LLM", providerLabel(cfg.Classifier.Provider))
	if cfg.Database.PostgresDSN != "" {
		printRow("Store", "postgres")
	} else {
		printRow("Store", "memory")
	}
	printRow("Session TTL", sessionTTLLabel(cfg.Session.TTL.Std()))
	printRow("Notify targets", fmt.Sprintf("%d", len(cfg.Notify.Targets)))
	printRow("Listen addr", listenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func providerLabel(entry config.ProviderEntry) string {
	if entry.Name == "" {
		return "(rules only)"
	}
	if entry.Model != "" {
		return entry.Name + " / " + entry.Model
	}
	return entry.Name
}

func sessionTTLLabel(ttl time.Duration) string {
	if ttl <= 0 {
		return guided.DefaultTTL.String()
	}
	return ttl.String()
}

func printRow(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
