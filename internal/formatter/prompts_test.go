package formatter

import (
	"strings"
	"testing"

	"github.com/clinscribe/revisor/internal/advisor"
	"github.com/clinscribe/revisor/internal/classify"
)

func TestBuildPromptInjectsAdvice(t *testing.T) {
	advice := []advisor.SectionAdvice{
		{
			SectionName: "MEDICATION SUMMARY",
			Advice: []advisor.Advice{
				{
					Category:       classify.CategoryValueCorrection,
					Trigger:        "lisinopril 20mg daily",
					Transformation: "Lisinopril: 40mg daily",
					Confidence:     0.82,
				},
			},
		},
		{
			SectionName: "NOTES",
			Advice: []advisor.Advice{
				{
					Category:   classify.CategoryFormattingStyle,
					Trigger:    "dictated but not read",
					Confidence: 0.55,
				},
			},
		},
	}

	prompt := buildPrompt("Patient seen for hypertension follow-up.", advice)

	if !strings.Contains(prompt, "Patient seen for hypertension follow-up.") {
		t.Error("prompt missing transcript")
	}
	if !strings.Contains(prompt, `for "lisinopril 20mg daily" prefer "Lisinopril: 40mg daily" (confidence 0.82)`) {
		t.Error("prompt missing transformation advice")
	}
	if !strings.Contains(prompt, `omit content matching "dictated but not read"`) {
		t.Error("prompt missing omission advice")
	}
	if !strings.Contains(prompt, "MEDICATION SUMMARY:") || !strings.Contains(prompt, "NOTES:") {
		t.Error("prompt missing section grouping")
	}
	if !strings.Contains(prompt, "PATIENT INFORMATION:") || !strings.Contains(prompt, "RESULT/OUTCOME:") {
		t.Error("prompt missing note template headings")
	}
}

func TestBuildPromptWithoutAdvice(t *testing.T) {
	prompt := buildPrompt("Short visit.", nil)
	if !strings.Contains(prompt, "(none yet)") {
		t.Error("prompt should mark empty preferences")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty API key")
	}
	c, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
}
