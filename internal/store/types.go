// Package store persists editing rules and owns their lifecycle: merging of
// recurring candidates, promotion, conflict detection, and review actions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinscribe/revisor/internal/classify"
)

var (
	// ErrNotFound is returned when a rule ID does not exist.
	ErrNotFound = errors.New("rule not found")

	// ErrConflicted is returned when a review action targets a conflicted
	// rule; conflicts are resolved through ResolveConflict, not Confirm.
	ErrConflicted = errors.New("rule is conflicted")

	// ErrNotConflicted is returned when ResolveConflict targets rules that
	// are not in the conflicted state.
	ErrNotConflicted = errors.New("rule is not conflicted")

	// ErrInvalidCandidate is returned when a batch contains a candidate
	// missing its section, category, or trigger. The whole batch is
	// rejected; nothing is written.
	ErrInvalidCandidate = errors.New("candidate rule is missing required fields")
)

// Status is the lifecycle state of a rule.
type Status string

const (
	StatusCandidate  Status = "candidate"
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusConflicted Status = "conflicted"
)

// Rule is a persisted editing pattern. Identity for merging is
// (section, category, trigger, transformation); two rules sharing everything
// but the transformation are candidates for conflict.
type Rule struct {
	ID              uuid.UUID         `json:"id"`
	SectionName     string            `json:"section_name"`
	Category        classify.Category `json:"category"`
	TriggerPattern  string            `json:"trigger_pattern"`
	Transformation  string            `json:"transformation"`
	Confidence      float64           `json:"confidence"`
	SupportCount    int               `json:"support_count"`
	Status          Status            `json:"status"`
	LastConfirmedAt *time.Time        `json:"last_confirmed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Defaults for Options fields left at zero.
const (
	DefaultMinSupport            = 2
	DefaultConfidenceStep        = 0.05
	DefaultConflictMinConfidence = 0.6
	DefaultFuzzyMatchThreshold   = 0.85
)

// Options tunes lifecycle behavior. The zero value takes every default.
type Options struct {
	// MinSupport is the support count at which a candidate becomes active
	// without explicit confirmation.
	MinSupport int

	// ConfidenceStep is added to a rule's confidence each time the same
	// candidate recurs or a reviewer confirms it, capped at 1.0.
	ConfidenceStep float64

	// ConflictMinConfidence is the floor both rules must reach before a
	// transformation disagreement marks them conflicted.
	ConflictMinConfidence float64

	// FuzzyMatchThreshold is the Jaro-Winkler score at or above which a
	// query key matches a trigger pattern without a literal prefix match.
	FuzzyMatchThreshold float64
}

func (o Options) withDefaults() Options {
	if o.MinSupport <= 0 {
		o.MinSupport = DefaultMinSupport
	}
	if o.ConfidenceStep <= 0 {
		o.ConfidenceStep = DefaultConfidenceStep
	}
	if o.ConflictMinConfidence <= 0 {
		o.ConflictMinConfidence = DefaultConflictMinConfidence
	}
	if o.FuzzyMatchThreshold <= 0 {
		o.FuzzyMatchThreshold = DefaultFuzzyMatchThreshold
	}
	return o
}

// BatchResult reports what one atomic upsert changed. Rules holds the final
// state of the rule behind each input candidate, in input order.
type BatchResult struct {
	Rules      []Rule `json:"rules"`
	Created    int    `json:"created"`
	Merged     int    `json:"merged"`
	Promoted   []Rule `json:"promoted,omitempty"`
	Conflicted []Rule `json:"conflicted,omitempty"`
}

// RuleStore is the persistence contract shared by the Postgres and in-memory
// implementations. UpsertBatch is atomic: either every candidate lands or
// none does.
type RuleStore interface {
	UpsertBatch(ctx context.Context, candidates []classify.CandidateRule) (*BatchResult, error)
	Query(ctx context.Context, sectionName string, keys []string) ([]Rule, error)
	List(ctx context.Context, sectionName string, status Status) ([]Rule, error)
	Get(ctx context.Context, id uuid.UUID) (*Rule, error)
	Confirm(ctx context.Context, id uuid.UUID) (*Rule, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Rule, error)
	ResolveConflict(ctx context.Context, winnerID, loserID uuid.UUID) (*Rule, error)
	Close()
}

func validateCandidates(candidates []classify.CandidateRule) error {
	for _, c := range candidates {
		if c.SectionName == "" || c.Category == "" || c.TriggerPattern == "" {
			return ErrInvalidCandidate
		}
	}
	return nil
}

// mergedConfidence bumps a recurring rule's confidence by one step above the
// higher of the stored and incoming scores. Confidence never decreases.
func mergedConfidence(existing, incoming, step float64) float64 {
	c := existing
	if incoming > c {
		c = incoming
	}
	c += step
	if c > 1.0 {
		c = 1.0
	}
	return c
}
