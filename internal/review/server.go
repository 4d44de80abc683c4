// Package review serves the HITL product search over HTTP: search, then
// approve or edit the results so the next search for the same query
// returns them.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/stategraph/memory"
	"github.com/dshills/stategraph/workflow"
)

// Service is the product search the API exposes.
type Service interface {
	Search(ctx context.Context, query string) (workflow.ProductState, error)
	Approve(ctx context.Context, query, results string) (string, error)
	Edit(ctx context.Context, query, results string) (string, error)
	Entries(ctx context.Context) ([]memory.Entry, error)
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse is returned by POST /search.
type SearchResponse struct {
	Query   string `json:"query"`
	Results string `json:"results"`
	Source  string `json:"source,omitempty"`
}

// FeedbackRequest is the body of POST /approve and POST /edit.
type FeedbackRequest struct {
	Query   string `json:"query"`
	Results string `json:"results"`
}

// StatusResponse reports a remembered decision.
type StatusResponse struct {
	Status string `json:"status"`
}

// EntryResponse is one remembered entry.
type EntryResponse struct {
	Query     string    `json:"query"`
	Result    string    `json:"result"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemoryResponse is returned by GET /memory.
type MemoryResponse struct {
	Entries []EntryResponse `json:"entries"`
	Text    string          `json:"text"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Option configures the handler.
type Option func(*handler)

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *handler) { s.metrics = h }
}

// WithLogger logs internal failures to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *handler) { s.logger = l }
}

type handler struct {
	svc     Service
	metrics http.Handler
	logger  *slog.Logger
}

// NewHandler routes the review API to svc.
func NewHandler(svc Service, opts ...Option) http.Handler {
	s := &handler{svc: svc, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/search", s.search)
	r.Post("/approve", s.feedback(Service.Approve))
	r.Post("/edit", s.feedback(Service.Edit))
	r.Get("/memory", s.memory)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *handler) search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := s.svc.Search(r.Context(), req.Query)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: req.Query, Results: st.Results, Source: st.Source})
}

func (s *handler) feedback(fn func(Service, context.Context, string, string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FeedbackRequest
		if !decode(w, r, &req) {
			return
		}
		status, err := fn(s.svc, r.Context(), req.Query, req.Results)
		if err != nil {
			s.fail(w, r.URL.Path, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: status})
	}
}

func (s *handler) memory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Entries(r.Context())
	if err != nil {
		s.fail(w, "memory", err)
		return
	}
	resp := MemoryResponse{Entries: make([]EntryResponse, 0, len(entries)), Text: memory.Format(entries)}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			Query:     e.Query,
			Result:    e.Result,
			Source:    string(e.Source),
			UpdatedAt: e.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, memory.ErrEmptyQuery):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, memory.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("review request failed", "op", op, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
