package classify

import (
	"math"
	"testing"

	"github.com/clinscribe/revisor/internal/diff"
	"github.com/clinscribe/revisor/internal/note"
)

func kvField(label, value string) *note.Field {
	return &note.Field{
		Key:      note.Normalize(label),
		Label:    label,
		Value:    value,
		Text:     label + ": " + value,
		KeyValue: true,
	}
}

func textField(text string) *note.Field {
	f := note.Field{Text: text}
	fields := note.ExtractFields(text)
	if len(fields) == 1 {
		f = fields[0]
	}
	return &f
}

func TestClassifyCategories(t *testing.T) {
	c := New()

	tests := []struct {
		name         string
		op           diff.EditOperation
		wantCategory Category
		wantTrigger  string
		wantTransf   string
	}{
		{
			name: "dosage change is a value correction",
			op: diff.EditOperation{
				Kind:        diff.OpModified,
				SectionName: note.SectionMedicationSummary,
				Before:      kvField("Lisinopril", "20mg daily"),
				After:       kvField("Lisinopril", "40mg daily"),
				Similarity:  0.9,
			},
			wantCategory: CategoryValueCorrection,
			wantTrigger:  "lisinopril 20mg daily",
			wantTransf:   "Lisinopril: 40mg daily",
		},
		{
			name: "vocabulary swap is terminology",
			op: diff.EditOperation{
				Kind:        diff.OpModified,
				SectionName: note.SectionSituation,
				Before:      textField("Patient reports shortness of breath"),
				After:       textField("Patient reports dyspnea"),
				Similarity:  0.82,
			},
			wantCategory: CategoryTerminology,
			wantTrigger:  "patient reports shortness of breath",
			wantTransf:   "Patient reports dyspnea",
		},
		{
			name: "restructured fact is formatting style",
			op: diff.EditOperation{
				Kind:        diff.OpModified,
				SectionName: note.SectionMedicationSummary,
				Before:      textField("Atorvastatin 20mg daily"),
				After:       textField("Atorvastatin — 20 mg, once daily at bedtime"),
				Similarity:  0.6,
			},
			wantCategory: CategoryFormattingStyle,
			wantTrigger:  "atorvastatin 20mg daily",
			wantTransf:   "Atorvastatin — 20 mg, once daily at bedtime",
		},
		{
			name: "safety phrase insertion",
			op: diff.EditOperation{
				Kind:        diff.OpInserted,
				SectionName: note.SectionPlan,
				After:       textField("Advised immediate ED presentation if any occur"),
			},
			wantCategory: CategorySafetyAddition,
			wantTrigger:  "advised",
			wantTransf:   "Advised immediate ED presentation if any occur",
		},
		{
			name: "non-safety insertion is formatting style",
			op: diff.EditOperation{
				Kind:        diff.OpInserted,
				SectionName: note.SectionObjectiveFindings,
				After:       kvField("SpO2", "94% on room air"),
			},
			wantCategory: CategoryFormattingStyle,
			wantTrigger:  "spo2",
			wantTransf:   "SpO2: 94% on room air",
		},
		{
			name: "deletion is formatting style with empty transformation",
			op: diff.EditOperation{
				Kind:        diff.OpDeleted,
				SectionName: note.SectionNotes,
				Before:      textField("Dictated but not read"),
			},
			wantCategory: CategoryFormattingStyle,
			wantTrigger:  "dictated but not read",
			wantTransf:   "",
		},
		{
			name: "reorder is structural",
			op: diff.EditOperation{
				Kind:        diff.OpReordered,
				SectionName: note.SectionPlan,
				Before:      textField("Follow up in two weeks"),
				After:       textField("Follow up in two weeks"),
				Similarity:  1.0,
			},
			wantCategory: CategoryStructural,
			wantTrigger:  "follow up in two weeks",
			wantTransf:   "Follow up in two weeks",
		},
		{
			name: "section added is structural",
			op: diff.EditOperation{
				Kind:        diff.OpSectionAdded,
				SectionName: note.SectionResultOutcome,
			},
			wantCategory: CategoryStructural,
			wantTrigger:  "result outcome",
			wantTransf:   "add section",
		},
		{
			name: "section removed is structural",
			op: diff.EditOperation{
				Kind:        diff.OpSectionRemoved,
				SectionName: note.SectionNotes,
			},
			wantCategory: CategoryStructural,
			wantTrigger:  "notes",
			wantTransf:   "remove section",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(tt.op)
			if !ok {
				t.Fatal("Classify returned no candidate")
			}
			if got.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.TriggerPattern != tt.wantTrigger {
				t.Errorf("trigger = %q, want %q", got.TriggerPattern, tt.wantTrigger)
			}
			if got.Transformation != tt.wantTransf {
				t.Errorf("transformation = %q, want %q", got.Transformation, tt.wantTransf)
			}
			if got.SectionName != string(tt.op.SectionName) {
				t.Errorf("section = %q, want %q", got.SectionName, tt.op.SectionName)
			}
			if got.Confidence <= 0 || got.Confidence > 1 {
				t.Errorf("confidence = %v, want in (0, 1]", got.Confidence)
			}
		})
	}
}

func TestClassifyValueCorrectionBeatsTerminology(t *testing.T) {
	c := New()
	got, ok := c.Classify(diff.EditOperation{
		Kind:        diff.OpModified,
		SectionName: note.SectionMedicationSummary,
		Before:      kvField("Metformin", "500mg twice daily"),
		After:       kvField("Metformin", "1000mg twice daily"),
		Similarity:  0.95,
	})
	if !ok {
		t.Fatal("Classify returned no candidate")
	}
	if got.Category != CategoryValueCorrection {
		t.Fatalf("category = %q, want %q", got.Category, CategoryValueCorrection)
	}
}

func TestClassifyUnchangedSkipped(t *testing.T) {
	c := New()
	_, ok := c.Classify(diff.EditOperation{
		Kind:        diff.OpUnchanged,
		SectionName: note.SectionPlan,
		Before:      textField("Continue current regimen"),
		After:       textField("Continue current regimen"),
		Similarity:  1.0,
	})
	if ok {
		t.Fatal("unchanged operation produced a candidate")
	}
}

func TestClassifyConfidenceScaling(t *testing.T) {
	c := New()

	low, _ := c.Classify(diff.EditOperation{
		Kind:        diff.OpModified,
		SectionName: note.SectionSituation,
		Before:      textField("Chest pain on exertion"),
		After:       textField("Chest pain, worse on exertion, radiating to the left arm"),
		Similarity:  0.5,
	})
	high, _ := c.Classify(diff.EditOperation{
		Kind:        diff.OpModified,
		SectionName: note.SectionSituation,
		Before:      textField("Chest pain on exertion"),
		After:       textField("Chest pain with exertion"),
		Similarity:  0.75,
	})
	if low.Category != CategoryFormattingStyle || high.Category != CategoryFormattingStyle {
		t.Fatalf("categories = %q, %q, want both %q", low.Category, high.Category, CategoryFormattingStyle)
	}
	if high.Confidence <= low.Confidence {
		t.Errorf("confidence %v at similarity 0.75 not above %v at 0.5", high.Confidence, low.Confidence)
	}

	want := 0.40 + 0.25*0.5
	if math.Abs(low.Confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", low.Confidence, want)
	}
}

func TestClassifyCustomSafetyTerm(t *testing.T) {
	c := New(WithSafetyTerms("return precautions"))
	got, ok := c.Classify(diff.EditOperation{
		Kind:        diff.OpInserted,
		SectionName: note.SectionPlan,
		After:       textField("Return precautions discussed with patient"),
	})
	if !ok {
		t.Fatal("Classify returned no candidate")
	}
	if got.Category != CategorySafetyAddition {
		t.Fatalf("category = %q, want %q", got.Category, CategorySafetyAddition)
	}
}

func TestClassifyAllPreservesOrder(t *testing.T) {
	c := New()
	ops := []diff.EditOperation{
		{Kind: diff.OpUnchanged, SectionName: note.SectionPlan, Before: textField("a"), After: textField("a"), Similarity: 1.0},
		{Kind: diff.OpModified, SectionName: note.SectionMedicationSummary, Before: kvField("Lisinopril", "20mg daily"), After: kvField("Lisinopril", "40mg daily"), Similarity: 0.9},
		{Kind: diff.OpInserted, SectionName: note.SectionPlan, After: textField("Call 911 if symptoms worsen")},
	}
	got := c.ClassifyAll(ops)
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
	if got[0].Category != CategoryValueCorrection {
		t.Errorf("first = %q, want %q", got[0].Category, CategoryValueCorrection)
	}
	if got[1].Category != CategorySafetyAddition {
		t.Errorf("second = %q, want %q", got[1].Category, CategorySafetyAddition)
	}
}
