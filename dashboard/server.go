// Package dashboard is the operator-facing HTTP surface: conversation
// browsing, reply sending, moderation and template editing, all as JSON
// over a chi router.
package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyejuteao/pineveilbot/internal/templates"
	"github.com/hyejuteao/pineveilbot/relay"
)

type Server struct {
	registry  *relay.Registry
	store     *relay.Store
	router    *relay.Router
	templates *templates.Store
	logger    *slog.Logger
}

func New(registry *relay.Registry, store *relay.Store, router *relay.Router, tmpl *templates.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry:  registry,
		store:     store,
		router:    router,
		templates: tmpl,
		logger:    logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/conversations", s.handleConversations)
		r.Get("/conversations/{pseudonym}", s.handleConversation)
		r.Post("/reply", s.handleReply)
		r.Post("/block", s.handleBlock)
		r.Post("/unblock", s.handleUnblock)
		r.Get("/templates", s.handleTemplates)
		r.Put("/templates", s.handleTemplateUpdate)
		r.Post("/templates/reset", s.handleTemplateReset)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Aggregate())
}

func (s *Server) handleConversations(w http.ResponseWriter, _ *http.Request) {
	summaries := s.store.Summaries()
	out := make([]relay.Summary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, sum)
	}
	// Newest activity first; ordering is a display concern and lives here,
	// not in the store.
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":       s.store.Aggregate(),
		"conversations": out,
	})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	pseudonym := chi.URLParam(r, "pseudonym")
	identity, ok := s.registry.Get(pseudonym)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"messages": s.store.Log(pseudonym),
	})
}

type replyRequest struct {
	Pseudonym string `json:"pseudonym"`
	Text      string `json:"text"`
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Pseudonym = strings.TrimSpace(req.Pseudonym)
	req.Text = strings.TrimSpace(req.Text)
	if req.Pseudonym == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "pseudonym and text are required")
		return
	}

	err := s.router.SendReply(r.Context(), req.Pseudonym, req.Text)
	var deliveryErr *relay.DeliveryError
	switch {
	case errors.Is(err, relay.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.As(err, &deliveryErr):
		writeError(w, http.StatusBadGateway, "delivery failed")
	case err != nil:
		s.logger.Error("dashboard_reply_error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "reply failed")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

type moderationRequest struct {
	Pseudonym string `json:"pseudonym"`
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	var req moderationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Pseudonym) == "" {
		writeError(w, http.StatusBadRequest, "pseudonym is required")
		return
	}
	s.registry.Block(strings.TrimSpace(req.Pseudonym))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	var req moderationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Pseudonym) == "" {
		writeError(w, http.StatusBadRequest, "pseudonym is required")
		return
	}
	if err := s.registry.Unblock(strings.TrimSpace(req.Pseudonym)); err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": s.templates.All()})
}

type templateUpdateRequest struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

func (s *Server) handleTemplateUpdate(w http.ResponseWriter, r *http.Request) {
	var req templateUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Key) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "key and text are required")
		return
	}
	if !s.templates.Set(req.Key, req.Text) {
		writeError(w, http.StatusNotFound, "unknown template key")
		return
	}
	s.logger.Info("dashboard_template_updated", "key", req.Key)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type templateResetRequest struct {
	// Empty key resets every template.
	Key string `json:"key,omitempty"`
}

func (s *Server) handleTemplateReset(w http.ResponseWriter, r *http.Request) {
	var req templateResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		s.templates.ResetAll()
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	if !s.templates.Reset(key) {
		writeError(w, http.StatusNotFound, "unknown template key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
