// Package http exposes a slotflow Engine over HTTP.
//
// Routes:
//
//	POST   /conversations/{id}/messages   handle one inbound message
//	GET    /conversations                 list conversation ids
//	GET    /conversations/{id}            current state
//	DELETE /conversations/{id}            forget the conversation
//	GET    /conversations/{id}/events     server-sent turn diffs
//	GET    /health, /info, /metrics
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies; message size itself is enforced by the Engine.
const maxBodyBytes = 64 << 10

// Engine is the part of *slotflow.Engine the server needs.
type Engine interface {
	Handle(ctx context.Context, conversationID, message string) (*domain.State, *domain.TurnDiff, error)
	Conversation(ctx context.Context, conversationID string) (*domain.State, error)
	Reset(ctx context.Context, conversationID string) error
	Conversations(ctx context.Context) ([]string, error)
}

// MessageRequest is the body of POST /conversations/{id}/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse carries the saved state and what the message changed.
type MessageResponse struct {
	State *domain.State    `json:"state"`
	Diff  *domain.TurnDiff `json:"diff,omitempty"`
	// Replies holds outbound messages when the server owns the outbox.
	Replies []string `json:"replies,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ReplySource returns and forgets the messages sent to a conversation.
type ReplySource func(conversationID string) []string

// Server serves the HTTP API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger    *slog.Logger
	gatherer  prometheus.Gatherer
	replies   ReplySource
	validator *RequestValidator
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithReplies attaches the replies of each handled message to its response.
func WithReplies(src ReplySource) Option {
	return func(s *Server) {
		s.replies = src
	}
}

// WithRequestValidator checks every described request against the
// validator's OpenAPI document.
func WithRequestValidator(v *RequestValidator) Option {
	return func(s *Server) {
		s.validator = v
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, enableCORS)
	if s.validator != nil {
		r.Use(s.validator.Middleware)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", s.ListConversations)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetConversation)
			r.Delete("/", s.DeleteConversation)
			r.Post("/messages", s.PostMessage)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles POST /conversations/{id}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostMessage: invalid request body", "conversation_id", id, "error", err)
		return
	}

	state, diff, err := s.Engine.Handle(r.Context(), id, body.Message)
	if diff != nil {
		if payload, mErr := json.Marshal(diff); mErr == nil {
			s.Streams.Broadcast(id, string(payload))
		}
	}
	var replies []string
	if s.replies != nil && state != nil {
		replies = s.replies(id)
	}
	if err != nil {
		status := statusFor(err)
		s.logger.Error("PostMessage: handle failed", "conversation_id", id, "status", status, "error", err)
		if state == nil {
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, status, MessageResponse{State: state, Diff: diff, Replies: replies, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{State: state, Diff: diff, Replies: replies})
}

// GetConversation handles GET /conversations/{id}.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.Conversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteConversation handles DELETE /conversations/{id}.
func (s *Server) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConversations handles GET /conversations.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Conversations(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"conversations": ids})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "slotflow-http",
		"version": strings.TrimSpace(slotflow.Version),
	})
}

// SubscribeEvents handles GET /conversations/{id}/events (SSE). The optional
// watch query parameter ("slots,history,step,errors,response") drops diffs
// that touch none of the listed parts.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	id := chi.URLParam(r, "id")
	if err := domain.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			watch = append(watch, strings.TrimSpace(f))
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE: subscribed", "conversation_id", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "conversation_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !watched(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func watched(msg string, fields []string) bool {
	var diff domain.TurnDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, f := range fields {
		switch f {
		case "slots":
			if len(diff.Slots) > 0 {
				return true
			}
		case "history":
			if len(diff.History) > 0 {
				return true
			}
		case "step":
			if diff.CurrentStep != nil || diff.ShouldProceed != nil {
				return true
			}
		case "errors":
			if len(diff.Errors) > 0 {
				return true
			}
		case "response":
			if diff.Response != "" {
				return true
			}
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidConversationID),
		errors.Is(err, slotflow.ErrInputTooLarge),
		errors.Is(err, slotflow.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
