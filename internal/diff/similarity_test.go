package diff

import "testing"

func TestSimilarity_Identical(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"exact", "Lisinopril 20mg daily", "Lisinopril 20mg daily"},
		{"case and punctuation", "BP: 142/88", "bp 142 88"},
		{"dose spacing", "Atorvastatin 20 mg", "Atorvastatin 20mg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); got != 1.0 {
				t.Errorf("Similarity(%q, %q) = %f, want 1.0", tt.a, tt.b, got)
			}
		})
	}
}

func TestSimilarity_Empty(t *testing.T) {
	if got := Similarity("", "Rest"); got != 0.0 {
		t.Errorf("Similarity of empty vs text = %f, want 0", got)
	}
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Similarity of two empties = %f, want 1.0", got)
	}
}

func TestSimilarity_VocabularySwapScoresHigh(t *testing.T) {
	a := "Denies fevers, chills, nausea, vomiting, or diarrhea over the past week"
	b := "Denies fevers, chills, nausea, emesis, or diarrhea over the past week"
	got := Similarity(a, b)
	if got < 0.8 {
		t.Errorf("single-word swap similarity = %f, want >= 0.8", got)
	}
	if got >= 1.0 {
		t.Errorf("swap similarity = %f, want < 1.0", got)
	}
}

func TestSimilarity_ElaborationScoresLow(t *testing.T) {
	a := "EKG and blood tests ordered"
	b := "STAT 12-lead EKG, cardiac enzymes, CBC, CMP (pending)"
	got := Similarity(a, b)
	if got >= 0.8 {
		t.Errorf("elaboration similarity = %f, want well below 0.8", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := "Rest and hydration"
	b := "Rest, hydration, and daily weights"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("similarity is not symmetric")
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"Aspirin 81mg", "Warfarin 5mg"},
		{"short", "a considerably longer and completely different sentence"},
		{"Follow-up in one week", "Follow-up in two weeks"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0.0 || got > 1.0 {
			t.Errorf("Similarity(%q, %q) = %f out of [0,1]", p[0], p[1], got)
		}
	}
}
