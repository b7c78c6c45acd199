package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clinscribe/revisor/internal/advisor"
	"github.com/clinscribe/revisor/internal/processor"
	"github.com/clinscribe/revisor/internal/store"
)

type Server struct {
	router    *chi.Mux
	port      int
	rules     store.RuleStore
	processor *processor.Processor
	advisor   *advisor.Advisor
	formatter Formatter
}

func NewServer(port int, apiToken string, rules store.RuleStore, proc *processor.Processor, adv *advisor.Advisor, fmtr Formatter) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		rules:     rules,
		processor: proc,
		advisor:   adv,
		formatter: fmtr,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/revisor/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/rules", s.listRules)
		r.Get("/rules/{id}", s.getRule)
		r.Get("/advice", s.getAdvice)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/revisions", s.createRevision)
			r.Post("/format", s.formatTranscript)
			r.Post("/rules/{id}/confirm", s.confirmRule)
			r.Post("/rules/{id}/deactivate", s.deactivateRule)
			r.Post("/conflicts/resolve", s.resolveConflict)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "revisor",
		"status": "learning",
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
