// Package processor orchestrates the revisor's learning pipeline: parse the
// draft and edited notes, diff them, classify the edits, and persist the
// resulting rule candidates in one atomic batch.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/clinscribe/revisor/internal/bus"
	"github.com/clinscribe/revisor/internal/classify"
	"github.com/clinscribe/revisor/internal/diff"
	"github.com/clinscribe/revisor/internal/note"
	"github.com/clinscribe/revisor/internal/store"
)

// Publisher is the slice of the bus client the processor needs. Nil disables
// event publishing.
type Publisher interface {
	Publish(subject string, data any) error
}

// Revision pairs a draft note with the clinician's edited version.
type Revision struct {
	SessionRef string `json:"session_ref"`
	Draft      string `json:"draft"`
	Edited     string `json:"edited"`
}

// Result summarizes what one revision taught the store.
type Result struct {
	SessionRef string             `json:"session_ref"`
	Operations int                `json:"operations"`
	Candidates int                `json:"candidates"`
	Batch      *store.BatchResult `json:"batch,omitempty"`

	// Err is set on batch members that failed; ProcessRevision returns it
	// directly.
	Err error `json:"-"`
}

// Processor drives the diff, classify, persist pipeline.
type Processor struct {
	rules      store.RuleStore
	engine     *diff.Engine
	classifier *classify.Classifier
	publisher  Publisher
	workers    int
	logger     *slog.Logger
}

func New(rules store.RuleStore, engine *diff.Engine, classifier *classify.Classifier, publisher Publisher, workers int, logger *slog.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		rules:      rules,
		engine:     engine,
		classifier: classifier,
		publisher:  publisher,
		workers:    workers,
		logger:     logger,
	}
}

// ProcessRevision runs the full pipeline for one revision. A draft or edited
// note with no recognized headers aborts before anything is written; a batch
// failure leaves the store untouched because UpsertBatch is atomic.
func (p *Processor) ProcessRevision(ctx context.Context, rev Revision) (*Result, error) {
	draftDoc, err := note.Parse(rev.Draft)
	if err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}
	editedDoc, err := note.Parse(rev.Edited)
	if err != nil {
		return nil, fmt.Errorf("parse edited: %w", err)
	}

	ops := p.engine.DiffDocuments(draftDoc, editedDoc)
	candidates := p.classifier.ClassifyAll(ops)

	result := &Result{
		SessionRef: rev.SessionRef,
		Operations: len(ops),
		Candidates: len(candidates),
	}
	if len(candidates) == 0 {
		p.logger.Info("revision carried no edits",
			"session_ref", rev.SessionRef,
			"operations", len(ops))
		return result, nil
	}

	batch, err := p.rules.UpsertBatch(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("persist candidates: %w", err)
	}
	result.Batch = batch

	p.logger.Info("revision processed",
		"session_ref", rev.SessionRef,
		"operations", len(ops),
		"candidates", len(candidates),
		"created", batch.Created,
		"merged", batch.Merged,
		"promoted", len(batch.Promoted),
		"conflicted", len(batch.Conflicted))

	p.publishEvents(rev.SessionRef, batch)
	return result, nil
}

// ProcessBatch runs revisions concurrently through a bounded worker pool.
// Individual failures are recorded on their Result instead of aborting the
// batch; learning from the other revisions still proceeds.
func (p *Processor) ProcessBatch(ctx context.Context, revisions []Revision) ([]Result, error) {
	results := make([]Result, len(revisions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, rev := range revisions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.ProcessRevision(ctx, rev)
			if err != nil {
				p.logger.Error("revision failed",
					"session_ref", rev.SessionRef,
					"error", err)
				results[i] = Result{SessionRef: rev.SessionRef, Err: err}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// HandleNoteRevised is the NATS handler for scribe.note.revised.
func (p *Processor) HandleNoteRevised(subject string, data []byte) {
	ctx := context.Background()

	var evt bus.NoteRevisedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse note revised event", "error", err)
		return
	}
	if evt.Draft == "" || evt.Edited == "" {
		p.logger.Error("note revised event missing draft or edited text",
			"session_ref", evt.SessionRef)
		return
	}

	_, err := p.ProcessRevision(ctx, Revision{
		SessionRef: evt.SessionRef,
		Draft:      evt.Draft,
		Edited:     evt.Edited,
	})
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, note.ErrSchemaMismatch) {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "failed to process revision",
			"session_ref", evt.SessionRef,
			"error", err)
	}
}

func (p *Processor) publishEvents(sessionRef string, batch *store.BatchResult) {
	if p.publisher == nil {
		return
	}

	for _, rule := range batch.Rules {
		err := p.publisher.Publish(bus.SubjectRuleUpdated, bus.RuleUpdatedEvent{
			RuleID:         rule.ID.String(),
			SessionRef:     sessionRef,
			SectionName:    rule.SectionName,
			Category:       string(rule.Category),
			TriggerPattern: rule.TriggerPattern,
			Status:         string(rule.Status),
			Confidence:     rule.Confidence,
			SupportCount:   rule.SupportCount,
		})
		if err != nil {
			p.logger.Warn("failed to publish rule update",
				"rule_id", rule.ID,
				"error", err)
		}
	}

	for _, ev := range conflictEvents(sessionRef, batch.Conflicted) {
		if err := p.publisher.Publish(bus.SubjectRuleConflicted, ev); err != nil {
			p.logger.Warn("failed to publish conflict",
				"trigger", ev.TriggerPattern,
				"error", err)
		}
	}
}

// conflictEvents groups parked rules by trigger identity so one event covers
// each disagreement.
func conflictEvents(sessionRef string, conflicted []store.Rule) []bus.RuleConflictedEvent {
	byIdentity := make(map[string]*bus.RuleConflictedEvent)
	var order []string
	for _, rule := range conflicted {
		key := rule.SectionName + "|" + rule.TriggerPattern
		ev, ok := byIdentity[key]
		if !ok {
			ev = &bus.RuleConflictedEvent{
				SessionRef:     sessionRef,
				SectionName:    rule.SectionName,
				TriggerPattern: rule.TriggerPattern,
			}
			byIdentity[key] = ev
			order = append(order, key)
		}
		ev.RuleIDs = append(ev.RuleIDs, rule.ID.String())
	}

	out := make([]bus.RuleConflictedEvent, 0, len(order))
	for _, key := range order {
		out = append(out, *byIdentity[key])
	}
	return out
}
