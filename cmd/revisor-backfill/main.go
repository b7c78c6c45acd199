package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/clinscribe/revisor/internal/backfill"
	"github.com/clinscribe/revisor/internal/classify"
	"github.com/clinscribe/revisor/internal/config"
	"github.com/clinscribe/revisor/internal/diff"
	"github.com/clinscribe/revisor/internal/processor"
	"github.com/clinscribe/revisor/internal/store"
)

func main() {
	var dir string
	var singleFile string
	var statePath string
	var dryRun bool

	flag.StringVar(&dir, "dir", "", "Directory of *.jsonl revision exports")
	flag.StringVar(&singleFile, "file", "", "Single export file to process")
	flag.StringVar(&statePath, "state", "", "Override the resumable-state file location")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse and count revisions, write nothing")
	flag.Parse()

	cfg := config.Load()
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	storeOpts := store.Options{
		MinSupport:            cfg.MinSupport,
		ConfidenceStep:        cfg.ConfidenceStep,
		ConflictMinConfidence: cfg.ConflictMinConfidence,
		FuzzyMatchThreshold:   cfg.FuzzyMatchThreshold,
	}

	if cfg.DatabaseURL == "" && !dryRun {
		logger.Error("DATABASE_URL is required, backfilled rules must land somewhere")
		os.Exit(1)
	}

	var rules store.RuleStore
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL, storeOpts)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		rules = db
	} else {
		rules = store.NewMemory(storeOpts)
	}
	defer rules.Close()

	engine := diff.NewEngine(cfg.SameItemThreshold, logger)
	classifier := classify.New(
		classify.WithTerminologyThreshold(cfg.TerminologyThreshold),
		classify.WithSafetyTerms(cfg.SafetyTerms...),
	)
	proc := processor.New(rules, engine, classifier, nil, cfg.Workers, logger)

	runner := backfill.NewRunner(backfill.Config{
		Dir:        dir,
		SingleFile: singleFile,
		StatePath:  statePath,
		DryRun:     dryRun,
	}, proc, logger)

	if err := runner.Run(ctx); err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}
}
