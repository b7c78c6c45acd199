package note

import (
	"strings"
)

const (
	maxColonLabelTokens = 6
	maxDashLabelTokens  = 3
)

// ExtractFields decomposes a section body into ordered atomic fields.
// List markers (bullet, dash, numbering) and "Label: value" / "Label — value"
// patterns delimit fields; lines without list structure fall back to
// sentence-level segmentation. An empty body produces an empty sequence.
func ExtractFields(body string) []Field {
	var fields []Field
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		text, isList := stripListMarker(trimmed)
		text = strings.Trim(strings.TrimSpace(text), "*_")

		if f, ok := keyValueField(text); ok {
			fields = append(fields, f)
			continue
		}
		if isList {
			fields = append(fields, freeTextField(text))
			continue
		}
		for _, sentence := range splitSentences(text) {
			fields = append(fields, freeTextField(sentence))
		}
	}
	return fields
}

// keyValueField recognizes "Label: value" and "Label — value" boundaries.
// Labels are short by construction: a colon label of more than six tokens or
// a dash label of more than three is treated as prose, not a boundary.
func keyValueField(text string) (Field, bool) {
	if idx := strings.Index(text, ":"); idx > 0 {
		label := strings.Trim(strings.TrimSpace(text[:idx]), "*_")
		value := strings.Trim(strings.TrimSpace(text[idx+1:]), "*_ ")
		if label != "" && value != "" && len(strings.Fields(label)) <= maxColonLabelTokens {
			return Field{
				Key:      Normalize(label),
				Label:    label,
				Value:    value,
				Text:     text,
				KeyValue: true,
			}, true
		}
	}

	for _, dash := range []string{" — ", " – "} {
		if idx := strings.Index(text, dash); idx > 0 {
			label := strings.TrimSpace(text[:idx])
			value := strings.TrimSpace(text[idx+len(dash):])
			if label != "" && value != "" && len(strings.Fields(label)) <= maxDashLabelTokens {
				return Field{
					Key:      Normalize(label),
					Label:    label,
					Value:    value,
					Text:     text,
					KeyValue: true,
				}, true
			}
		}
	}

	return Field{}, false
}

func freeTextField(text string) Field {
	return Field{Key: keyFromText(text), Text: text}
}

// stripListMarker removes a leading bullet/dash/numbering marker and reports
// whether one was present.
func stripListMarker(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• ", "– ", "— "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):]), true
		}
	}

	// Numbered markers: "1. " or "1) ".
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		rest := line[i+1:]
		if strings.HasPrefix(rest, " ") {
			return strings.TrimSpace(rest), true
		}
	}
	return line, false
}

// splitSentences performs the sentence-level fallback segmentation.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '.' && text[i] != '!' && text[i] != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
