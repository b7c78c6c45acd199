package note

import (
	"strings"
)

const maxHeaderTokens = 6

// Parse splits a structured note into ordered sections and decomposes each
// section body into fields. Splitting is deterministic: a header line matches
// a schema name via case-insensitive, punctuation-normalized comparison;
// unmatched headers become uncategorized sections with the original header
// text retained. Parse returns ErrSchemaMismatch when zero recognized
// headers are found.
func Parse(text string) (*Document, error) {
	doc := &Document{}

	var (
		current   *Section
		body      []string
		preamble  []string
		sawSchema bool
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		current.Fields = ExtractFields(current.Body)
		doc.Sections = append(doc.Sections, *current)
		current = nil
		body = nil
	}

	for _, line := range strings.Split(text, "\n") {
		header, ok := headerLine(line)
		if !ok {
			if current != nil {
				body = append(body, line)
			} else if strings.TrimSpace(line) != "" {
				preamble = append(preamble, line)
			}
			continue
		}

		flush()
		name, recognized := ResolveHeader(header)
		if recognized {
			sawSchema = true
		}
		current = &Section{Name: name, Header: header}
	}
	flush()

	if !sawSchema {
		return nil, ErrSchemaMismatch
	}

	// Text before the first header is preserved, not dropped.
	if len(preamble) > 0 {
		pre := strings.TrimSpace(strings.Join(preamble, "\n"))
		sec := Section{Name: SectionUncategorized, Body: pre, Fields: ExtractFields(pre)}
		doc.Sections = append([]Section{sec}, doc.Sections...)
	}

	return doc, nil
}

// ResolveHeader maps a raw header string to a schema section name. Matching
// is case-insensitive and punctuation-normalized; a header may carry a
// trailing qualifier (e.g. "SITUATION (Chief Complaint & HPI)") as long as
// the schema name is its whole-token prefix.
func ResolveHeader(header string) (SectionName, bool) {
	norm := Normalize(header)
	for _, name := range schema {
		canon := Normalize(string(name))
		if norm == canon || strings.HasPrefix(norm, canon+" ") {
			return name, true
		}
	}
	return SectionUncategorized, false
}

// headerLine reports whether line is a section header: a non-list line whose
// entire content is a short phrase ending with a colon (or a bare line that
// matches the schema exactly). Field lines such as "Date: 2026-01-05" carry
// content after the colon and are never headers.
func headerLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if _, isList := stripListMarker(trimmed); isList {
		return "", false
	}

	if strings.HasSuffix(trimmed, ":") {
		header := strings.TrimSpace(strings.TrimSuffix(trimmed, ":"))
		if header == "" || len(strings.Fields(header)) > maxHeaderTokens {
			return "", false
		}
		return header, true
	}

	// Bare schema names without a colon still count as headers, but only on
	// exact match so narrative lines starting with "Plan ..." stay body text.
	norm := Normalize(trimmed)
	for _, name := range schema {
		if norm == Normalize(string(name)) {
			return trimmed, true
		}
	}
	return "", false
}
