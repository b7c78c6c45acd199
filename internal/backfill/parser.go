// Package backfill replays exported revision history through the learning
// pipeline, so a fresh rule store can be seeded from past edits instead of
// waiting for new ones.
package backfill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/clinscribe/revisor/internal/processor"
)

// ParseFile reads a JSONL revision export. Each line carries one revision
// with session_ref, draft, and edited fields; malformed lines and lines
// missing either note are skipped rather than failing the file.
func ParseFile(path string) ([]processor.Revision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var revisions []processor.Revision

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	for scanner.Scan() {
		var rev processor.Revision
		if err := json.Unmarshal(scanner.Bytes(), &rev); err != nil {
			continue // skip malformed lines
		}
		if rev.Draft == "" || rev.Edited == "" {
			continue
		}
		revisions = append(revisions, rev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return revisions, nil
}
