package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/clinscribe/revisor/internal/processor"
)

// Config holds the backfill command configuration.
type Config struct {
	Dir        string // directory of *.jsonl revision exports
	SingleFile string // process a single file only
	StatePath  string // override the resumable-state location
	DryRun     bool   // parse and count, write nothing
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg    Config
	proc   *processor.Processor
	logger *slog.Logger
}

// NewRunner creates a backfill runner.
func NewRunner(cfg Config, proc *processor.Processor, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, proc: proc, logger: logger}
}

// Run executes the backfill process. Already-processed files are skipped via
// the state file, so interrupted runs resume where they stopped.
func (r *Runner) Run(ctx context.Context) error {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("files discovered", "count", len(files))

	for _, path := range files {
		if state.IsProcessed(path) {
			r.logger.Debug("already processed", "file", path)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		revisions, err := ParseFile(path)
		if err != nil {
			state.AddError(fmt.Sprintf("%s: %v", path, err))
			r.logger.Error("failed to parse export", "file", path, "error", err)
			continue
		}

		if r.cfg.DryRun {
			r.logger.Info("dry run", "file", path, "revisions", len(revisions))
			continue
		}

		results, err := r.proc.ProcessBatch(ctx, revisions)
		if err != nil {
			return fmt.Errorf("process %s: %w", path, err)
		}
		for _, res := range results {
			if res.Err != nil {
				state.AddError(fmt.Sprintf("%s/%s: %v", path, res.SessionRef, res.Err))
				continue
			}
			state.RevisionsProcessed++
			if res.Batch != nil {
				state.RulesWritten += res.Batch.Created
			}
		}

		state.MarkProcessed(path)
		if err := state.Save(); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		r.logger.Info("file processed", "file", path, "revisions", len(revisions))
	}

	r.logger.Info("backfill complete",
		"files", len(state.FilesProcessed),
		"revisions", state.RevisionsProcessed,
		"rules_written", state.RulesWritten,
		"errors", len(state.Errors))
	return nil
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		return []string{r.cfg.SingleFile}, nil
	}
	if r.cfg.Dir == "" {
		return nil, fmt.Errorf("either a directory or a single file is required")
	}

	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		files = append(files, filepath.Join(r.cfg.Dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
