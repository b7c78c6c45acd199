package classify

// baseWeight returns the initial confidence weight for a rule category.
// Safety additions and value corrections are higher-stakes signals and
// start heavier than stylistic categories.
func baseWeight(category Category) float64 {
	switch category {
	case CategorySafetyAddition:
		return 0.75
	case CategoryValueCorrection:
		return 0.70
	case CategoryTerminology:
		return 0.60
	case CategoryStructural:
		return 0.50
	default: // formatting-style and anything unrecognized
		return 0.40
	}
}

// initialConfidence combines the category base weight with the observed
// alignment similarity. Insertions and deletions carry zero similarity and
// fall back to the bare base weight.
func initialConfidence(category Category, similarity float64) float64 {
	return clamp(baseWeight(category) + 0.25*similarity)
}

func clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
