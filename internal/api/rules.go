package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinscribe/revisor/internal/note"
	"github.com/clinscribe/revisor/internal/processor"
	"github.com/clinscribe/revisor/internal/store"
)

// ResolveConflictRequest names the surviving and discarded rule of one
// conflict.
type ResolveConflictRequest struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

// RuleListResponse wraps GET /api/v1/rules results.
type RuleListResponse struct {
	Rules []store.Rule `json:"rules"`
	Count int          `json:"count"`
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	status := store.Status(r.URL.Query().Get("status"))

	rules, err := s.rules.List(r.Context(), section, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list rules: "+err.Error())
		return
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := rules[:0]
		for _, rule := range rules {
			if string(rule.Category) == category {
				filtered = append(filtered, rule)
			}
		}
		rules = filtered
	}
	writeJSON(w, http.StatusOK, RuleListResponse{Rules: rules, Count: len(rules)})
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	rule, err := s.rules.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) createRevision(w http.ResponseWriter, r *http.Request) {
	var rev processor.Revision
	if err := json.NewDecoder(r.Body).Decode(&rev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if rev.Draft == "" || rev.Edited == "" {
		writeError(w, http.StatusBadRequest, "draft and edited are required")
		return
	}

	result, err := s.processor.ProcessRevision(r.Context(), rev)
	if err != nil {
		if errors.Is(err, note.ErrSchemaMismatch) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "process revision: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) confirmRule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	rule, err := s.rules.Confirm(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) deactivateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	rule, err := s.rules.Deactivate(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) resolveConflict(w http.ResponseWriter, r *http.Request) {
	var req ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	winnerID, err := uuid.Parse(req.WinnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid winner_id")
		return
	}
	loserID, err := uuid.Parse(req.LoserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loser_id")
		return
	}

	winner, err := s.rules.ResolveConflict(r.Context(), winnerID, loserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, winner)
}

func (s *Server) getAdvice(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section == "" {
		writeError(w, http.StatusBadRequest, "section is required")
		return
	}

	var keys []string
	for _, raw := range strings.Split(r.URL.Query().Get("keys"), ",") {
		if key := note.Normalize(raw); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		writeError(w, http.StatusBadRequest, "at least one key is required")
		return
	}

	advice, err := s.advisor.Advise(r.Context(), section, keys)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "advise: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"section": section,
		"advice":  advice,
		"count":   len(advice),
	})
}

func parseRuleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return uuid.Nil, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflicted), errors.Is(err, store.ErrNotConflicted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
