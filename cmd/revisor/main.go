package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinscribe/revisor/internal/advisor"
	"github.com/clinscribe/revisor/internal/api"
	"github.com/clinscribe/revisor/internal/bus"
	"github.com/clinscribe/revisor/internal/classify"
	"github.com/clinscribe/revisor/internal/config"
	"github.com/clinscribe/revisor/internal/diff"
	"github.com/clinscribe/revisor/internal/formatter"
	"github.com/clinscribe/revisor/internal/notify"
	"github.com/clinscribe/revisor/internal/processor"
	"github.com/clinscribe/revisor/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("revisor starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storeOpts := store.Options{
		MinSupport:            cfg.MinSupport,
		ConfidenceStep:        cfg.ConfidenceStep,
		ConflictMinConfidence: cfg.ConflictMinConfidence,
		FuzzyMatchThreshold:   cfg.FuzzyMatchThreshold,
	}

	// Database (optional — memory store keeps a single instance useful for
	// local work, but rules are lost on restart)
	var rules store.RuleStore
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL, storeOpts)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		rules = db
		slog.Info("database connected")
	} else {
		rules = store.NewMemory(storeOpts)
		slog.Warn("DATABASE_URL not set — rules held in memory only")
	}
	defer rules.Close()

	// NATS (optional — without it the HTTP API is the only intake)
	var busClient *bus.Client
	if cfg.NatsURL != "" {
		client, err := bus.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		busClient = client
		defer busClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without the event bus")
	}

	engine := diff.NewEngine(cfg.SameItemThreshold, slog.Default())
	classifier := classify.New(
		classify.WithTerminologyThreshold(cfg.TerminologyThreshold),
		classify.WithSafetyTerms(cfg.SafetyTerms...),
	)

	var publisher processor.Publisher
	if busClient != nil {
		publisher = busClient
	}
	proc := processor.New(rules, engine, classifier, publisher, cfg.Workers, slog.Default())
	adv := advisor.New(rules, slog.Default())

	if busClient != nil {
		if err := busClient.Subscribe(bus.SubjectNoteRevised, proc.HandleNoteRevised); err != nil {
			slog.Error("failed to subscribe to revised notes", "error", err)
			os.Exit(1)
		}

		// Conflict alerts (optional — conflicts are still visible over the API)
		if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
			poster := notify.NewSlackPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
			if err := busClient.Subscribe(bus.SubjectRuleConflicted, poster.HandleRuleConflicted); err != nil {
				slog.Error("failed to subscribe to conflicts", "error", err)
				os.Exit(1)
			}
			slog.Info("slack conflict alerts ready", "channel", cfg.SlackChannel)
		} else {
			slog.Warn("slack not configured — conflicts surface only via the API")
		}
	}

	// Formatter (optional — without an OpenAI key /format returns 503)
	var fmtr api.Formatter
	if cfg.OpenAIAPIKey != "" {
		client, err := formatter.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			slog.Error("failed to build formatter", "error", err)
			os.Exit(1)
		}
		fmtr = client
		slog.Info("formatter ready", "model", cfg.OpenAIModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set — draft formatting disabled")
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, rules, proc, adv, fmtr)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if busClient != nil {
		err := busClient.Publish(bus.SubjectAgentRegistered, bus.AgentRegisteredEvent{
			AgentID:   "revisor",
			Subjects:  []string{bus.SubjectNoteRevised},
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("revisor ready", "port", cfg.Port, "workers", cfg.Workers)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("revisor stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
