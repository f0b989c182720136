// Package api exposes the MoodTune service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/moodtune/internal/adapters/repository"
	service "github.com/okian/moodtune/internal/app"
	"github.com/okian/moodtune/internal/domain/emotion"
	"github.com/okian/moodtune/internal/domain/insights"
	"github.com/okian/moodtune/internal/domain/matching"
	"github.com/okian/moodtune/internal/domain/model"
	"github.com/okian/moodtune/pkg/logger"
)

const (
	maxBodyBytes = 1 << 20

	// SubjectHeader carries the opaque subject identifier.
	SubjectHeader = "X-Subject-ID"
	// IdempotencyHeader carries the client idempotency key for recommendations.
	IdempotencyHeader = "Idempotency-Key"
)

// Dependencies is the service surface the HTTP layer needs.
type Dependencies interface {
	Analyze(ctx context.Context, subject string, req service.AnalyzeRequest) (service.Analysis, error)
	AnalyzeBatch(ctx context.Context, req service.BatchRequest) (service.BatchResult, error)
	SupportedLabels() service.Supported

	Recommend(ctx context.Context, subject, idemKey string, req service.RecommendRequest) (service.Recommendation, error)
	History(ctx context.Context, subject string, page, perPage int) (model.Page[model.Match], error)
	GetMatch(ctx context.Context, subject, id string) (model.Match, error)
	Feedback(ctx context.Context, subject, id string, req service.FeedbackRequest) (service.FeedbackResult, error)

	Catalog(ctx context.Context, label string, page, perPage int) (model.Page[matching.CatalogItem], error)
	CatalogItem(ctx context.Context, id string) (matching.CatalogItem, error)
	CatalogStats(ctx context.Context) (model.CatalogStats, error)

	HistoryStats(ctx context.Context, subject string, days int) (service.HistoryReport, error)
	ClearHistory(ctx context.Context, subject string) (int, error)
	MoodPatterns(ctx context.Context, subject string, days int) (service.MoodReport, error)
	MusicTaste(ctx context.Context, subject string) (insights.Taste, error)

	Ready(ctx context.Context) service.ReadyStatus
}

// Server routes HTTP requests to Dependencies.
type Server struct {
	deps   Dependencies
	logger logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a Server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps, logger: logger.Get().Named("api")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/emotions", func(r chi.Router) {
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/analyze/batch", s.handleAnalyzeBatch)
			r.Get("/supported", s.handleSupported)
		})
		r.Route("/recommendations", func(r chi.Router) {
			r.Post("/", s.handleRecommend)
			r.Get("/history", s.handleRecommendationHistory)
			r.Get("/{id}", s.handleGetRecommendation)
			r.Post("/{id}/feedback", s.handleFeedback)
		})
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", s.handleCatalog)
			r.Get("/stats", s.handleCatalogStats)
			r.Get("/{id}", s.handleCatalogItem)
		})
		r.Get("/history/stats", s.handleHistoryStats)
		r.Delete("/history", s.handleClearHistory)
		r.Route("/insights", func(r chi.Router) {
			r.Get("/mood-patterns", s.handleMoodPatterns)
			r.Get("/music-taste", s.handleMusicTaste)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// fail maps err onto a status code and error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNoSubject):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, emotion.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, "model_unavailable", err.Error())
	case errors.Is(err, emotion.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrNoMatch):
		writeError(w, http.StatusNotFound, "no_match", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err.Error())
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", ErrBadRequest, err)
	}
	return nil
}

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}

func subject(r *http.Request) string {
	return r.Header.Get(SubjectHeader)
}
