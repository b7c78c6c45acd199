package classify

import "strings"

// defaultSafetyLexicon lists normalized phrases that mark an inserted field
// as safety-netting content. The list is a configuration surface; callers
// may extend it. Entries must already be in normalized form (lowercase,
// punctuation stripped).
var defaultSafetyLexicon = []string{
	"emergency",
	"red flag",
	"if symptoms worsen",
	"if any occur",
	"seek immediate",
	"immediate ed presentation",
	"call 911",
	"return to ed",
	"go to the nearest",
	"worsening symptoms",
	"safety netting",
}

// matchesSafetyLexicon reports whether normalized text contains any lexicon
// phrase as a whole-token substring.
func matchesSafetyLexicon(normalized string, lexicon []string) bool {
	padded := " " + normalized + " "
	for _, phrase := range lexicon {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}
