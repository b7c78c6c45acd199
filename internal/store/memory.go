package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinscribe/revisor/internal/classify"
)

var _ RuleStore = (*Memory)(nil)

// Memory is an in-process RuleStore used when no database is configured and
// throughout the unit tests. A single mutex guards the whole map; batch
// upserts are atomic because validation happens before any mutation.
type Memory struct {
	mu    sync.Mutex
	opts  Options
	rules map[uuid.UUID]*Rule
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts Options) *Memory {
	return &Memory{
		opts:  opts.withDefaults(),
		rules: make(map[uuid.UUID]*Rule),
	}
}

func (m *Memory) Close() {}

func (m *Memory) UpsertBatch(ctx context.Context, candidates []classify.CandidateRule) (*BatchResult, error) {
	if err := validateCandidates(candidates); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	result := &BatchResult{}
	conflictedSeen := make(map[uuid.UUID]bool)

	for _, cand := range candidates {
		rule := m.findMergeTarget(cand)
		if rule != nil {
			rule.SupportCount++
			rule.Confidence = mergedConfidence(rule.Confidence, cand.Confidence, m.opts.ConfidenceStep)
			rule.LastConfirmedAt = &now
			rule.UpdatedAt = now
			result.Merged++
		} else {
			rule = &Rule{
				ID:             uuid.New(),
				SectionName:    cand.SectionName,
				Category:       cand.Category,
				TriggerPattern: cand.TriggerPattern,
				Transformation: cand.Transformation,
				Confidence:     cand.Confidence,
				SupportCount:   1,
				Status:         StatusCandidate,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			m.rules[rule.ID] = rule
			result.Created++
		}

		if rule.Status == StatusCandidate && rule.SupportCount >= m.opts.MinSupport {
			rule.Status = StatusActive
			result.Promoted = append(result.Promoted, *rule)
		}

		for _, other := range m.findConflicts(rule) {
			if rule.Status != StatusConflicted {
				rule.Status = StatusConflicted
				rule.UpdatedAt = now
			}
			if !conflictedSeen[rule.ID] {
				conflictedSeen[rule.ID] = true
				result.Conflicted = append(result.Conflicted, *rule)
			}
			if other.Status != StatusConflicted {
				other.Status = StatusConflicted
				other.UpdatedAt = now
			}
			if !conflictedSeen[other.ID] {
				conflictedSeen[other.ID] = true
				result.Conflicted = append(result.Conflicted, *other)
			}
		}

		result.Rules = append(result.Rules, *rule)
	}

	return result, nil
}

// findMergeTarget locates the rule sharing the candidate's full identity.
// Inactive rules are skipped so a deactivated rule stays dead instead of
// silently accumulating support again.
func (m *Memory) findMergeTarget(cand classify.CandidateRule) *Rule {
	for _, r := range m.rules {
		if r.Status == StatusInactive {
			continue
		}
		if r.SectionName == cand.SectionName &&
			r.Category == cand.Category &&
			r.TriggerPattern == cand.TriggerPattern &&
			r.Transformation == cand.Transformation {
			return r
		}
	}
	return nil
}

// findConflicts returns live rules that share the rule's trigger identity but
// prescribe a different transformation, where both sides clear the
// confidence floor.
func (m *Memory) findConflicts(rule *Rule) []*Rule {
	if rule.Confidence < m.opts.ConflictMinConfidence {
		return nil
	}
	var out []*Rule
	for _, r := range m.rules {
		if r.ID == rule.ID || r.Status == StatusInactive {
			continue
		}
		if r.SectionName == rule.SectionName &&
			r.Category == rule.Category &&
			r.TriggerPattern == rule.TriggerPattern &&
			r.Transformation != rule.Transformation &&
			r.Confidence >= m.opts.ConflictMinConfidence {
			out = append(out, r)
		}
	}
	return out
}

func (m *Memory) Query(ctx context.Context, sectionName string, keys []string) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Rule
	for _, r := range m.rules {
		if r.Status != StatusActive || r.SectionName != sectionName {
			continue
		}
		for _, key := range keys {
			if keyMatchesTrigger(key, r.TriggerPattern, m.opts.FuzzyMatchThreshold) {
				out = append(out, *r)
				break
			}
		}
	}
	sortRules(out)
	return out, nil
}

func (m *Memory) List(ctx context.Context, sectionName string, status Status) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Rule
	for _, r := range m.rules {
		if sectionName != "" && r.SectionName != sectionName {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, *r)
	}
	sortRules(out)
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r
	return &out, nil
}

func (m *Memory) Confirm(ctx context.Context, id uuid.UUID) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status == StatusConflicted {
		return nil, ErrConflicted
	}
	now := time.Now().UTC()
	r.Status = StatusActive
	r.Confidence = mergedConfidence(r.Confidence, r.Confidence, m.opts.ConfidenceStep)
	r.LastConfirmedAt = &now
	r.UpdatedAt = now
	out := *r
	return &out, nil
}

func (m *Memory) Deactivate(ctx context.Context, id uuid.UUID) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Status = StatusInactive
	r.UpdatedAt = time.Now().UTC()
	out := *r
	return &out, nil
}

func (m *Memory) ResolveConflict(ctx context.Context, winnerID, loserID uuid.UUID) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	winner, ok := m.rules[winnerID]
	if !ok {
		return nil, ErrNotFound
	}
	loser, ok := m.rules[loserID]
	if !ok {
		return nil, ErrNotFound
	}
	if winner.Status != StatusConflicted || loser.Status != StatusConflicted {
		return nil, ErrNotConflicted
	}

	now := time.Now().UTC()
	winner.Status = StatusActive
	winner.LastConfirmedAt = &now
	winner.UpdatedAt = now
	loser.Status = StatusInactive
	loser.UpdatedAt = now

	out := *winner
	return &out, nil
}
