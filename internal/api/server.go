// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/jobs and friends for job submission, status, and cancellation.
//   - GET /v1/events for the per-owner progress stream (SSE).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/extraction"
	"github.com/lexharvest/docstream/internal/progress"
)

// JobService is the orchestrator surface the handlers need.
type JobService interface {
	Submit(ctx context.Context, sourceID, ownerID string, params map[string]any) (extraction.Job, error)
	GetStatus(ctx context.Context, jobID string) (extraction.Job, error)
	Cancel(jobID string) bool
	Stats() extraction.SystemStats
	Sources() []string
}

// EventStream hands out per-owner event subscriptions.
type EventStream interface {
	Subscribe(ownerID string) (<-chan progress.Event, func())
}

// Config controls HTTP behavior.
type Config struct {
	// RequestTimeout bounds non-streaming handlers (default 60s).
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the orchestrator and the event stream.
type Server struct {
	router chi.Router
	jobs   JobService
	events EventStream
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes. The gatherer
// backs /metrics; pass prometheus.DefaultGatherer in production.
func NewServer(jobs JobService, events EventStream, gatherer prometheus.Gatherer, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{jobs: jobs, events: events, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		// The SSE stream stays outside the timeout handler; everything else
		// is bounded.
		r.Get("/events", s.streamEvents)
		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(cfg.RequestTimeout))
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", s.submitJob)
				r.Route("/{job_id}", func(r chi.Router) {
					r.Get("/", s.getJob)
					r.Post("/cancel", s.cancelJob)
				})
			})
			r.Get("/stats", s.getStats)
			r.Get("/sources", s.getSources)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	stats := s.jobs.Stats()
	if stats.SystemHealth == "empty" {
		s.writeError(w, http.StatusServiceUnavailable, "no extraction sources registered")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitJobRequest struct {
	SourceID   string         `json:"source_id"`
	OwnerID    string         `json:"owner_id"`
	Parameters map[string]any `json:"parameters"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SourceID == "" {
		s.writeError(w, http.StatusBadRequest, "source_id is required")
		return
	}

	job, err := s.jobs.Submit(r.Context(), req.SourceID, req.OwnerID, req.Parameters)
	if err != nil {
		var unavailable *extraction.SourceUnavailableError
		var notFound *extraction.ExtractorNotFoundError
		switch {
		case errors.As(err, &unavailable), errors.As(err, &notFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		default:
			s.logger.Error("job submission failed", zap.String("source_id", req.SourceID), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to submit job")
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, extraction.ErrJobNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("job lookup failed", zap.String("job_id", jobID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	cancelled := s.jobs.Cancel(jobID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    jobID,
		"cancelled": cancelled,
	})
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.jobs.Stats())
}

func (s *Server) getSources(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"sources": s.jobs.Sources()})
}

// streamEvents delivers the owner's progress events as Server-Sent Events.
// The public payload carries the translated status vocabulary, never the
// internal stage names.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		s.writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := s.events.Subscribe(ownerID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			payload := map[string]any{
				"job_id":              evt.JobID,
				"source_id":           evt.SourceID,
				"status":              evt.PublicStatus(),
				"progress_percent":    evt.Percent,
				"message":             evt.Message,
				"documents_found":     evt.DocumentsFound,
				"documents_processed": evt.DocumentsProcessed,
				"timestamp":           evt.TS,
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if err := enc.Encode(payload); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
