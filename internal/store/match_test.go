package store

import "testing"

func TestKeyMatchesTrigger(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		trigger string
		want    bool
	}{
		{"exact", "lisinopril 20mg daily", "lisinopril 20mg daily", true},
		{"key prefix", "lisinopril", "lisinopril 20mg daily", true},
		{"fuzzy spelling drift", "lisinoprol", "lisinopril 20mg daily", true},
		{"specific key stays off a shorter trigger", "lisinopril 20mg daily", "lisinoprol", false},
		{"unrelated key", "metformin", "lisinopril 20mg daily", false},
		{"empty key", "", "lisinopril", false},
		{"empty trigger", "lisinopril", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keyMatchesTrigger(tt.key, tt.trigger, DefaultFuzzyMatchThreshold)
			if got != tt.want {
				t.Errorf("keyMatchesTrigger(%q, %q) = %v, want %v", tt.key, tt.trigger, got, tt.want)
			}
		})
	}
}
