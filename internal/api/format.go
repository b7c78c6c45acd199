package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clinscribe/revisor/internal/advisor"
)

// Formatter turns a raw transcript into a draft note. Satisfied by
// formatter.Client; nil when no OpenAI key is configured.
type Formatter interface {
	Format(ctx context.Context, transcript string, advice []advisor.SectionAdvice) (string, error)
}

// FormatRequest carries a raw visit transcript.
type FormatRequest struct {
	Transcript string `json:"transcript"`
}

// FormatResponse returns the generated draft and how many rules shaped it.
type FormatResponse struct {
	Draft        string `json:"draft"`
	RulesApplied int    `json:"rules_applied"`
}

func (s *Server) formatTranscript(w http.ResponseWriter, r *http.Request) {
	if s.formatter == nil {
		writeError(w, http.StatusServiceUnavailable, "formatter not configured")
		return
	}

	var req FormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}

	advice, err := s.advisor.AdviseAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "collect advice: "+err.Error())
		return
	}

	draft, err := s.formatter.Format(r.Context(), req.Transcript, advice)
	if err != nil {
		writeError(w, http.StatusBadGateway, "format transcript: "+err.Error())
		return
	}

	applied := 0
	for _, section := range advice {
		applied += len(section.Advice)
	}
	writeJSON(w, http.StatusOK, FormatResponse{Draft: draft, RulesApplied: applied})
}
