package backfill

import (
	"path/filepath"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(s.FilesProcessed) != 0 {
		t.Fatalf("fresh state has %d processed files", len(s.FilesProcessed))
	}

	s.MarkProcessed("/exports/a.jsonl")
	s.RevisionsProcessed = 7
	s.RulesWritten = 3
	s.AddError("b.jsonl: bad line")
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !loaded.IsProcessed("/exports/a.jsonl") {
		t.Error("processed file lost on reload")
	}
	if loaded.IsProcessed("/exports/b.jsonl") {
		t.Error("unprocessed file reported as processed")
	}
	if loaded.RevisionsProcessed != 7 || loaded.RulesWritten != 3 {
		t.Errorf("counters = %d, %d, want 7, 3", loaded.RevisionsProcessed, loaded.RulesWritten)
	}
	if len(loaded.Errors) != 1 {
		t.Errorf("errors = %d, want 1", len(loaded.Errors))
	}
}
