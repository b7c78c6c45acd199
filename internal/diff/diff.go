// Package diff aligns the field sequences of a draft document against its
// human-edited version and reports every semantic difference as an ordered
// sequence of edit operations.
//
// Alignment is a greedy best-match over fields sharing the same normalized
// key rather than a positional sequence alignment: fields are semantically
// addressable (a medication line is identified by its drug, a vital by its
// label), so key-scoped matching is both cheaper and more faithful to
// meaning than edit-distance DP over whole sections.
package diff

import (
	"log/slog"

	"github.com/clinscribe/revisor/internal/note"
)

// DefaultSameItemThreshold is the minimum similarity for two fields sharing
// a key to be treated as the same item. Calibrated against representative
// medication and plan edits; tunable via configuration.
const DefaultSameItemThreshold = 0.45

// OpKind enumerates the outcome of one field (or section) comparison.
type OpKind string

const (
	OpUnchanged      OpKind = "unchanged"
	OpInserted       OpKind = "inserted"
	OpDeleted        OpKind = "deleted"
	OpModified       OpKind = "modified"
	OpReordered      OpKind = "reordered"
	OpSectionAdded   OpKind = "section_added"
	OpSectionRemoved OpKind = "section_removed"
)

// EditOperation is one aligned comparison result. It is created fresh per
// diff run and never persisted; only rules derived from it are.
type EditOperation struct {
	Kind        OpKind
	SectionName note.SectionName
	Before      *note.Field
	After       *note.Field
	Similarity  float64
}

// Trivial reports whether the operation carries no learnable difference.
func (op EditOperation) Trivial() bool {
	return op.Kind == OpUnchanged
}

// Engine computes diffs. It holds only tuning configuration and a logger;
// it keeps no state between runs.
type Engine struct {
	threshold float64
	logger    *slog.Logger
}

// NewEngine returns an Engine with the given same-item threshold. A
// threshold outside (0,1] falls back to DefaultSameItemThreshold.
func NewEngine(sameItemThreshold float64, logger *slog.Logger) *Engine {
	if sameItemThreshold <= 0 || sameItemThreshold > 1 {
		sameItemThreshold = DefaultSameItemThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{threshold: sameItemThreshold, logger: logger}
}

// DiffDocuments compares two parsed documents section by section. Sections
// are comparable only when their names match; a section present in one
// document and absent in the other yields a section_added or
// section_removed operation followed by per-field operations, so every
// field in both documents still appears in exactly one operation.
func (e *Engine) DiffDocuments(draft, edited *note.Document) []EditOperation {
	draftFields := fieldsByName(draft)
	editedFields := fieldsByName(edited)

	var ops []EditOperation
	seen := make(map[note.SectionName]bool)

	for _, name := range sectionOrder(draft) {
		seen[name] = true
		df := draftFields[name]
		ef, inEdited := editedFields[name]
		if !inEdited {
			ops = append(ops, EditOperation{Kind: OpSectionRemoved, SectionName: name})
			ops = append(ops, e.AlignFields(name, df, nil)...)
			continue
		}
		ops = append(ops, e.AlignFields(name, df, ef)...)
	}

	for _, name := range sectionOrder(edited) {
		if seen[name] {
			continue
		}
		ops = append(ops, EditOperation{Kind: OpSectionAdded, SectionName: name})
		ops = append(ops, e.AlignFields(name, nil, editedFields[name])...)
	}

	return ops
}

// AlignFields aligns one section's draft fields against its edited fields.
// Matching is greedy in draft order: each draft field takes its
// best-scoring unmatched edited field with the same key, provided the score
// meets the same-item threshold. Ties break to the earliest edited
// position, which keeps the alignment deterministic; tie occurrences are
// logged since they indicate the threshold may need tuning. Matched pairs
// whose relative order changed are reported as reordered.
func (e *Engine) AlignFields(sectionName note.SectionName, draft, edited []note.Field) []EditOperation {
	matchedEdited := make([]bool, len(edited))

	type match struct {
		editedIdx  int
		similarity float64
	}
	matches := make([]*match, len(draft))

	for i := range draft {
		best := -1
		bestScore := 0.0
		ambiguous := false

		for j := range edited {
			if matchedEdited[j] || edited[j].Key != draft[i].Key {
				continue
			}
			score := Similarity(draft[i].Text, edited[j].Text)
			// Key-value fields are addressable by label alone: an unchanged
			// label means the same item however much the value was rewritten,
			// so the similarity threshold applies only to free-text fields.
			if score < e.threshold && !(draft[i].KeyValue && edited[j].KeyValue) {
				continue
			}
			switch {
			case best == -1 || score > bestScore:
				best = j
				bestScore = score
				ambiguous = false
			case score == bestScore:
				ambiguous = true
			}
		}

		if best == -1 {
			continue
		}
		if ambiguous {
			e.logger.Warn("alignment ambiguous",
				"section", string(sectionName),
				"key", draft[i].Key,
				"similarity", bestScore,
			)
		}
		matchedEdited[best] = true
		matches[i] = &match{editedIdx: best, similarity: bestScore}
	}

	var ops []EditOperation
	maxEditedIdx := -1

	for i := range draft {
		m := matches[i]
		if m == nil {
			ops = append(ops, EditOperation{
				Kind:        OpDeleted,
				SectionName: sectionName,
				Before:      &draft[i],
			})
			continue
		}

		kind := OpModified
		switch {
		case m.editedIdx < maxEditedIdx:
			kind = OpReordered
		case m.similarity == 1.0:
			kind = OpUnchanged
		}
		if m.editedIdx > maxEditedIdx {
			maxEditedIdx = m.editedIdx
		}

		ops = append(ops, EditOperation{
			Kind:        kind,
			SectionName: sectionName,
			Before:      &draft[i],
			After:       &edited[m.editedIdx],
			Similarity:  m.similarity,
		})
	}

	for j := range edited {
		if matchedEdited[j] {
			continue
		}
		ops = append(ops, EditOperation{
			Kind:        OpInserted,
			SectionName: sectionName,
			After:       &edited[j],
		})
	}

	return ops
}

func fieldsByName(doc *note.Document) map[note.SectionName][]note.Field {
	out := make(map[note.SectionName][]note.Field, len(doc.Sections))
	for _, sec := range doc.Sections {
		out[sec.Name] = append(out[sec.Name], sec.Fields...)
	}
	return out
}

func sectionOrder(doc *note.Document) []note.SectionName {
	var names []note.SectionName
	seen := make(map[note.SectionName]bool, len(doc.Sections))
	for _, sec := range doc.Sections {
		if seen[sec.Name] {
			continue
		}
		seen[sec.Name] = true
		names = append(names, sec.Name)
	}
	return names
}
