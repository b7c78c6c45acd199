package bus

import (
	"encoding/json"
	"testing"
)

func TestNoteRevisedEventParsing(t *testing.T) {
	raw := `{
		"session_ref": "visit-8412",
		"draft": "PLAN:\n- Rest and hydration",
		"edited": "PLAN:\n- Rest and hydration\n- Advised immediate ED presentation if any occur"
	}`

	var ev NoteRevisedEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("failed to parse NoteRevisedEvent: %v", err)
	}

	if ev.SessionRef != "visit-8412" {
		t.Errorf("expected session_ref 'visit-8412', got '%s'", ev.SessionRef)
	}
	if ev.Draft == "" || ev.Edited == "" {
		t.Error("expected both draft and edited to be populated")
	}
}

func TestRuleUpdatedEventRoundTrip(t *testing.T) {
	ev := RuleUpdatedEvent{
		RuleID:         "0d2f0a9e-5b59-4d0e-9a57-2f3f8c8a1b11",
		SessionRef:     "visit-8412",
		SectionName:    "MEDICATION SUMMARY",
		Category:       "value_correction",
		TriggerPattern: "lisinopril 20mg daily",
		Status:         "active",
		Confidence:     0.82,
		SupportCount:   3,
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var parsed RuleUpdatedEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if parsed != ev {
		t.Errorf("round-trip mismatch: got %+v, want %+v", parsed, ev)
	}
}

func TestSubjectConstants(t *testing.T) {
	if SubjectNoteRevised != "scribe.note.revised" {
		t.Errorf("unexpected SubjectNoteRevised '%s'", SubjectNoteRevised)
	}
	if SubjectRuleUpdated != "scribe.rule.updated" {
		t.Errorf("unexpected SubjectRuleUpdated '%s'", SubjectRuleUpdated)
	}
	if SubjectRuleConflicted != "scribe.rule.conflicted" {
		t.Errorf("unexpected SubjectRuleConflicted '%s'", SubjectRuleConflicted)
	}
	if SubjectAgentRegistered != "scribe.agent.revisor.registered" {
		t.Errorf("unexpected SubjectAgentRegistered '%s'", SubjectAgentRegistered)
	}
}
