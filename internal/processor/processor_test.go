package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/clinscribe/revisor/internal/bus"
	"github.com/clinscribe/revisor/internal/classify"
	"github.com/clinscribe/revisor/internal/diff"
	"github.com/clinscribe/revisor/internal/note"
	"github.com/clinscribe/revisor/internal/store"
)

type published struct {
	subject string
	data    any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{subject: subject, data: data})
	return nil
}

func (f *fakePublisher) bySubject(subject string) []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []published
	for _, e := range f.events {
		if e.subject == subject {
			out = append(out, e)
		}
	}
	return out
}

func newTestProcessor(pub Publisher) (*Processor, *store.Memory) {
	logger := slog.Default()
	m := store.NewMemory(store.Options{MinSupport: 2})
	p := New(m, diff.NewEngine(diff.DefaultSameItemThreshold, logger), classify.New(), pub, 2, logger)
	return p, m
}

const draftNote = `MEDICATION SUMMARY:
- Lisinopril: 20mg daily

PLAN:
- Rest and hydration
`

const editedNote = `MEDICATION SUMMARY:
- Lisinopril: 40mg daily

PLAN:
- Rest and hydration
- Advised immediate ED presentation if any occur
`

func TestProcessRevisionLearnsRules(t *testing.T) {
	pub := &fakePublisher{}
	p, m := newTestProcessor(pub)
	ctx := context.Background()

	res, err := p.ProcessRevision(ctx, Revision{
		SessionRef: "visit-1",
		Draft:      draftNote,
		Edited:     editedNote,
	})
	if err != nil {
		t.Fatalf("ProcessRevision failed: %v", err)
	}
	if res.Candidates != 2 {
		t.Fatalf("candidates = %d, want 2", res.Candidates)
	}
	if res.Batch == nil || res.Batch.Created != 2 {
		t.Fatalf("batch = %+v, want 2 created rules", res.Batch)
	}

	rules, err := m.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("store holds %d rules, want 2", len(rules))
	}

	categories := map[classify.Category]bool{}
	for _, r := range rules {
		categories[r.Category] = true
	}
	if !categories[classify.CategoryValueCorrection] {
		t.Error("missing value correction rule")
	}
	if !categories[classify.CategorySafetyAddition] {
		t.Error("missing safety addition rule")
	}

	updates := pub.bySubject(bus.SubjectRuleUpdated)
	if len(updates) != 2 {
		t.Errorf("published %d rule updates, want 2", len(updates))
	}
}

func TestProcessRevisionNoEdits(t *testing.T) {
	pub := &fakePublisher{}
	p, m := newTestProcessor(pub)
	ctx := context.Background()

	res, err := p.ProcessRevision(ctx, Revision{
		SessionRef: "visit-2",
		Draft:      draftNote,
		Edited:     draftNote,
	})
	if err != nil {
		t.Fatalf("ProcessRevision failed: %v", err)
	}
	if res.Candidates != 0 {
		t.Errorf("candidates = %d, want 0", res.Candidates)
	}
	if res.Batch != nil {
		t.Errorf("batch = %+v, want nil", res.Batch)
	}

	rules, err := m.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("store holds %d rules after no-op revision", len(rules))
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events for a no-op revision", len(pub.events))
	}
}

func TestProcessRevisionSchemaMismatch(t *testing.T) {
	p, m := newTestProcessor(nil)
	ctx := context.Background()

	_, err := p.ProcessRevision(ctx, Revision{
		SessionRef: "visit-3",
		Draft:      "just a loose paragraph with no headers at all",
		Edited:     editedNote,
	})
	if !errors.Is(err, note.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}

	rules, err := m.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("store holds %d rules after aborted revision", len(rules))
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	p, m := newTestProcessor(nil)
	ctx := context.Background()

	results, err := p.ProcessBatch(ctx, []Revision{
		{SessionRef: "ok-1", Draft: draftNote, Edited: editedNote},
		{SessionRef: "bad", Draft: "no headers here", Edited: editedNote},
		{SessionRef: "ok-2", Draft: draftNote, Edited: draftNote},
	})
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Candidates != 2 {
		t.Errorf("first result = %+v, want 2 candidates", results[0])
	}
	if !errors.Is(results[1].Err, note.ErrSchemaMismatch) {
		t.Errorf("second result err = %v, want ErrSchemaMismatch", results[1].Err)
	}
	if results[2].Err != nil || results[2].Candidates != 0 {
		t.Errorf("third result = %+v, want no candidates", results[2])
	}

	rules, err := m.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("store holds %d rules, want 2 from the surviving revision", len(rules))
	}
}

func TestProcessRevisionPublishesConflicts(t *testing.T) {
	pub := &fakePublisher{}
	p, _ := newTestProcessor(pub)
	ctx := context.Background()

	first := Revision{SessionRef: "visit-a", Draft: draftNote, Edited: editedNote}
	if _, err := p.ProcessRevision(ctx, first); err != nil {
		t.Fatalf("first revision failed: %v", err)
	}

	disagreeing := Revision{
		SessionRef: "visit-b",
		Draft:      draftNote,
		Edited: `MEDICATION SUMMARY:
- Lisinopril: 60mg daily

PLAN:
- Rest and hydration
`,
	}
	if _, err := p.ProcessRevision(ctx, disagreeing); err != nil {
		t.Fatalf("second revision failed: %v", err)
	}

	conflicts := pub.bySubject(bus.SubjectRuleConflicted)
	if len(conflicts) != 1 {
		t.Fatalf("published %d conflict events, want 1", len(conflicts))
	}
	ev, ok := conflicts[0].data.(bus.RuleConflictedEvent)
	if !ok {
		t.Fatalf("conflict payload has type %T", conflicts[0].data)
	}
	if len(ev.RuleIDs) != 2 {
		t.Errorf("conflict covers %d rules, want 2", len(ev.RuleIDs))
	}
	if ev.SectionName != "MEDICATION SUMMARY" {
		t.Errorf("conflict section = %q", ev.SectionName)
	}
}

func TestHandleNoteRevised(t *testing.T) {
	p, m := newTestProcessor(nil)

	payload, err := json.Marshal(bus.NoteRevisedEvent{
		SessionRef: "visit-nats",
		Draft:      draftNote,
		Edited:     editedNote,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	p.HandleNoteRevised(bus.SubjectNoteRevised, payload)

	rules, err := m.List(context.Background(), "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("store holds %d rules, want 2", len(rules))
	}
}

func TestHandleNoteRevisedBadPayload(t *testing.T) {
	p, m := newTestProcessor(nil)

	p.HandleNoteRevised(bus.SubjectNoteRevised, []byte("{not json"))
	p.HandleNoteRevised(bus.SubjectNoteRevised, []byte(`{"session_ref":"x"}`))

	rules, err := m.List(context.Background(), "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("store holds %d rules after bad payloads", len(rules))
	}
}
