// Package advisor surfaces learned rules as concrete formatting guidance for
// a draft note. It reads active rules only; candidates, inactive, and
// conflicted rules never reach a formatter.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/clinscribe/revisor/internal/classify"
	"github.com/clinscribe/revisor/internal/note"
	"github.com/clinscribe/revisor/internal/store"
)

// Advice is one applicable rule, ready to inject into a formatting prompt or
// return over the API.
type Advice struct {
	RuleID         uuid.UUID         `json:"rule_id"`
	Category       classify.Category `json:"category"`
	Trigger        string            `json:"trigger"`
	Transformation string            `json:"transformation"`
	Confidence     float64           `json:"confidence"`
}

// SectionAdvice groups advice under the section it applies to, in canonical
// note order.
type SectionAdvice struct {
	SectionName string   `json:"section_name"`
	Advice      []Advice `json:"advice"`
}

type Advisor struct {
	rules  store.RuleStore
	logger *slog.Logger
}

func New(rules store.RuleStore, logger *slog.Logger) *Advisor {
	return &Advisor{rules: rules, logger: logger}
}

// Advise returns advice for one section, ordered by the store's confidence
// ranking. Keys are normalized field keys from the draft.
func (a *Advisor) Advise(ctx context.Context, sectionName string, keys []string) ([]Advice, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rules, err := a.rules.Query(ctx, sectionName, keys)
	if err != nil {
		return nil, fmt.Errorf("query rules for %s: %w", sectionName, err)
	}

	advice := make([]Advice, 0, len(rules))
	for _, r := range rules {
		advice = append(advice, Advice{
			RuleID:         r.ID,
			Category:       r.Category,
			Trigger:        r.TriggerPattern,
			Transformation: r.Transformation,
			Confidence:     r.Confidence,
		})
	}
	return advice, nil
}

// AdviseDocument walks a parsed draft and collects advice per section, using
// each section's field keys as the query terms.
func (a *Advisor) AdviseDocument(ctx context.Context, doc *note.Document) ([]SectionAdvice, error) {
	var out []SectionAdvice
	for _, section := range doc.Sections {
		keys := fieldKeys(section.Fields)
		advice, err := a.Advise(ctx, string(section.Name), keys)
		if err != nil {
			return nil, err
		}
		if len(advice) == 0 {
			continue
		}
		a.logger.Debug("advice collected",
			"section", section.Name,
			"keys", len(keys),
			"rules", len(advice))
		out = append(out, SectionAdvice{SectionName: string(section.Name), Advice: advice})
	}
	return out, nil
}

// AdviseAll returns every active rule grouped by section in canonical note
// order. Used when no draft exists yet, like formatting a raw transcript.
func (a *Advisor) AdviseAll(ctx context.Context) ([]SectionAdvice, error) {
	rules, err := a.rules.List(ctx, "", store.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	bySection := make(map[string][]Advice)
	for _, r := range rules {
		bySection[r.SectionName] = append(bySection[r.SectionName], Advice{
			RuleID:         r.ID,
			Category:       r.Category,
			Trigger:        r.TriggerPattern,
			Transformation: r.Transformation,
			Confidence:     r.Confidence,
		})
	}

	var out []SectionAdvice
	for _, name := range note.Schema() {
		if advice, ok := bySection[string(name)]; ok {
			out = append(out, SectionAdvice{SectionName: string(name), Advice: advice})
			delete(bySection, string(name))
		}
	}
	// Rules learned in uncategorized or renamed sections go last.
	leftover := make([]string, 0, len(bySection))
	for section := range bySection {
		leftover = append(leftover, section)
	}
	sort.Strings(leftover)
	for _, section := range leftover {
		out = append(out, SectionAdvice{SectionName: section, Advice: bySection[section]})
	}
	return out, nil
}

func fieldKeys(fields []note.Field) []string {
	seen := make(map[string]bool, len(fields))
	var keys []string
	for _, f := range fields {
		if f.Key == "" || seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		keys = append(keys, f.Key)
	}
	return keys
}
