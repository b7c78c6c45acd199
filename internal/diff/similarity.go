package diff

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/clinscribe/revisor/internal/note"
)

// Similarity scores two field texts in [0,1]. It is the maximum of a
// normalized Levenshtein similarity and a token-overlap (Dice) ratio, both
// computed over normalized text, so that character-level edits and
// vocabulary swaps are each scored by the measure that suits them.
func Similarity(a, b string) float64 {
	na, nb := note.Normalize(a), note.Normalize(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	lev := levenshteinSimilarity(na, nb)
	dice := tokenOverlap(na, nb)
	if dice > lev {
		return dice
	}
	return lev
}

func levenshteinSimilarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	dist := matchr.Levenshtein(a, b)
	if dist >= longest {
		return 0.0
	}
	return 1.0 - float64(dist)/float64(longest)
}

// tokenOverlap is the Dice coefficient over unique tokens.
func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	seen := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		seen[t] = struct{}{}
	}
	matched := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		if _, ok := seen[t]; ok {
			matched[t] = struct{}{}
		}
	}

	ua := uniqueCount(ta)
	ub := uniqueCount(tb)
	return 2.0 * float64(len(matched)) / float64(ua+ub)
}

func uniqueCount(tokens []string) int {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return len(set)
}
