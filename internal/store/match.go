package store

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// keyMatchesTrigger reports whether a normalized query key addresses a
// trigger pattern. Exact and key-prefix matches are literal; anything else
// falls back to Jaro-Winkler so minor spelling drift still hits. The fuzzy
// comparison runs against the trigger's leading segment of the key's token
// length, never the whole trigger: a long specific key must not drift onto
// a shorter unrelated trigger just because they share a stem.
func keyMatchesTrigger(key, trigger string, fuzzyThreshold float64) bool {
	if key == "" || trigger == "" {
		return false
	}
	if key == trigger || strings.HasPrefix(trigger, key+" ") {
		return true
	}
	keyTokens := strings.Fields(key)
	trigTokens := strings.Fields(trigger)
	if len(trigTokens) < len(keyTokens) {
		return false
	}
	head := strings.Join(trigTokens[:len(keyTokens)], " ")
	return matchr.JaroWinkler(key, head, false) >= fuzzyThreshold
}

// sortRules orders query and list results deterministically: confidence
// descending, then support descending, then ID ascending.
func sortRules(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		if rules[i].SupportCount != rules[j].SupportCount {
			return rules[i].SupportCount > rules[j].SupportCount
		}
		return rules[i].ID.String() < rules[j].ID.String()
	})
}
