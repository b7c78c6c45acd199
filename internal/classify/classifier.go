// Package classify turns edit operations into candidate editing rules. The
// classifier is a pure function over its input: it holds only tuning
// configuration and never mutates persistent state.
package classify

import (
	"regexp"
	"strings"

	"github.com/clinscribe/revisor/internal/diff"
	"github.com/clinscribe/revisor/internal/note"
)

// Category is the kind of editing pattern a rule captures.
type Category string

const (
	CategoryTerminology     Category = "terminology"
	CategoryFormattingStyle Category = "formatting_style"
	CategorySafetyAddition  Category = "safety_addition"
	CategoryValueCorrection Category = "value_correction"
	CategoryStructural      Category = "structural"
)

// DefaultTerminologyThreshold is the similarity at or above which a
// modification is a pure vocabulary swap rather than a restructuring.
const DefaultTerminologyThreshold = 0.8

// CandidateRule is a not-yet-persisted editing pattern synthesized from one
// edit operation. The rule store owns deduplication, merging, and lifecycle.
type CandidateRule struct {
	SectionName    string   `json:"section_name"`
	Category       Category `json:"category"`
	TriggerPattern string   `json:"trigger_pattern"`
	Transformation string   `json:"transformation"`
	Confidence     float64  `json:"confidence"`
}

// Classifier assigns edit operations to rule categories.
type Classifier struct {
	terminologyThreshold float64
	lexicon              []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTerminologyThreshold overrides the terminology similarity boundary.
func WithTerminologyThreshold(threshold float64) Option {
	return func(c *Classifier) {
		if threshold > 0 && threshold <= 1 {
			c.terminologyThreshold = threshold
		}
	}
}

// WithSafetyTerms appends extra phrases to the safety lexicon. Terms are
// normalized before matching.
func WithSafetyTerms(terms ...string) Option {
	return func(c *Classifier) {
		for _, t := range terms {
			if n := note.Normalize(t); n != "" {
				c.lexicon = append(c.lexicon, n)
			}
		}
	}
}

// New returns a Classifier with the default thresholds and safety lexicon.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		terminologyThreshold: DefaultTerminologyThreshold,
		lexicon:              append([]string(nil), defaultSafetyLexicon...),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Classify inspects one non-trivial edit operation and synthesizes at most
// one candidate rule. Categories are checked in precedence order; the first
// match wins:
//
//  1. structural — reordering, or a section added/removed outright
//  2. safety-addition — inserted field matching the safety lexicon
//  3. value-correction — same label, numeric portion changed
//  4. terminology — near-identical phrasing, vocabulary swap only
//  5. formatting-style — restructuring of the same fact (catch-all)
func (c *Classifier) Classify(op diff.EditOperation) (CandidateRule, bool) {
	if op.Trivial() {
		return CandidateRule{}, false
	}

	section := string(op.SectionName)

	switch op.Kind {
	case diff.OpSectionAdded:
		return c.rule(section, CategoryStructural, note.Normalize(section), "add section", 0), true
	case diff.OpSectionRemoved:
		return c.rule(section, CategoryStructural, note.Normalize(section), "remove section", 0), true
	case diff.OpReordered:
		return c.rule(section, CategoryStructural, triggerFor(op.Before), op.After.Text, op.Similarity), true
	case diff.OpInserted:
		normalized := note.Normalize(op.After.Text)
		if matchesSafetyLexicon(normalized, c.lexicon) {
			return c.rule(section, CategorySafetyAddition, op.After.Key, op.After.Text, op.Similarity), true
		}
		return c.rule(section, CategoryFormattingStyle, op.After.Key, op.After.Text, op.Similarity), true
	case diff.OpDeleted:
		return c.rule(section, CategoryFormattingStyle, triggerFor(op.Before), "", 0), true
	case diff.OpModified:
		if isValueCorrection(op) {
			return c.rule(section, CategoryValueCorrection, triggerFor(op.Before), op.After.Text, op.Similarity), true
		}
		if op.Similarity >= c.terminologyThreshold {
			return c.rule(section, CategoryTerminology, triggerFor(op.Before), op.After.Text, op.Similarity), true
		}
		return c.rule(section, CategoryFormattingStyle, triggerFor(op.Before), op.After.Text, op.Similarity), true
	}

	return CandidateRule{}, false
}

// ClassifyAll maps a diff run to its full candidate list, preserving
// operation order.
func (c *Classifier) ClassifyAll(ops []diff.EditOperation) []CandidateRule {
	var candidates []CandidateRule
	for _, op := range ops {
		if cand, ok := c.Classify(op); ok {
			candidates = append(candidates, cand)
		}
	}
	return candidates
}

func (c *Classifier) rule(section string, category Category, trigger, transformation string, similarity float64) CandidateRule {
	return CandidateRule{
		SectionName:    section,
		Category:       category,
		TriggerPattern: trigger,
		Transformation: transformation,
		Confidence:     initialConfidence(category, similarity),
	}
}

// triggerFor builds the trigger pattern for a draft-side field: the
// normalized key followed by the normalized draft text, so that queries can
// match on the key prefix and merging can dedupe on the full identity.
func triggerFor(f *note.Field) string {
	normalized := note.Normalize(f.Text)
	if f.Key == "" {
		return normalized
	}
	if normalized == f.Key || strings.HasPrefix(normalized, f.Key+" ") {
		return normalized
	}
	return f.Key + " " + normalized
}

// isValueCorrection reports whether a modification kept the label but
// changed the numeric portion of the value (e.g. a dosage amount).
func isValueCorrection(op diff.EditOperation) bool {
	if op.Before == nil || op.After == nil {
		return false
	}
	if !op.Before.KeyValue || !op.After.KeyValue {
		return false
	}
	if op.Before.Key != op.After.Key {
		return false
	}
	before := numberPattern.FindAllString(note.Normalize(op.Before.Value), -1)
	after := numberPattern.FindAllString(note.Normalize(op.After.Value), -1)
	if len(before) == 0 && len(after) == 0 {
		return false
	}
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}
