// Package api exposes the HTTP interface for the crawler service: health
// probes, Prometheus metrics, and the postings query surface protected by
// the response cache and rate gate.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
	"github.com/openroles/careers-crawler/internal/gate"
	"github.com/openroles/careers-crawler/internal/metrics"
)

const defaultPostingsLimit = 100

// Config tunes the HTTP surface.
type Config struct {
	RequestTimeout time.Duration
}

// Runner triggers an on-demand crawl, satisfied by the orchestrator.
type Runner interface {
	Run(ctx context.Context) (aggregator.RunSummary, error)
}

// Server wires HTTP handlers to the posting store and the gate.
type Server struct {
	router    chi.Router
	postings  aggregator.PostingStore
	gate      *gate.Gate
	summaries *SummaryHolder
	runner    Runner
	logger    *zap.Logger
	cfg       Config
}

// NewServer constructs a Server with middleware and routes. The gate and
// runner are optional; without a gate the query surface is unprotected,
// without a runner POST /v1/crawl returns 503.
func NewServer(
	postings aggregator.PostingStore,
	g *gate.Gate,
	summaries *SummaryHolder,
	runner Runner,
	logger *zap.Logger,
	cfg Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if summaries == nil {
		summaries = NewSummaryHolder()
	}
	metrics.Init()

	s := &Server{
		postings:  postings,
		gate:      g,
		summaries: summaries,
		runner:    runner,
		logger:    logger,
		cfg:       cfg,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Get("/postings", s.listPostings)
		r.Get("/runs/latest", s.latestRun)
		r.Post("/crawl", s.triggerCrawl)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.postings.ListPostings(r.Context(), 1); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "posting store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listPostings(w http.ResponseWriter, r *http.Request) {
	limit := defaultPostingsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	cacheKey := r.URL.RequestURI()
	if s.gate != nil {
		if body, ok := s.gate.GetCached(r.Context(), cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte(body)); err != nil {
				s.logger.Error("write cached response failed", zap.Error(err))
			}
			return
		}
	}

	postings, err := s.postings.ListPostings(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list postings")
		return
	}
	if postings == nil {
		postings = []aggregator.JobPosting{}
	}

	payload := map[string]any{
		"postings": postings,
		"count":    len(postings),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to encode postings")
		return
	}
	if s.gate != nil {
		s.gate.SetCached(r.Context(), cacheKey, string(body))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("write response failed", zap.Error(err))
	}
}

func (s *Server) latestRun(w http.ResponseWriter, _ *http.Request) {
	summary, ok := s.summaries.Latest()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no crawl run has completed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) triggerCrawl(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "crawling is not enabled on this instance")
		return
	}
	go func() {
		// Detach from the request context; the crawl outlives the request.
		summary, err := s.runner.Run(context.Background())
		if err != nil {
			s.logger.Error("on-demand crawl failed", zap.Error(err))
			return
		}
		s.logger.Info("on-demand crawl finished",
			zap.String("run_id", summary.RunID),
			zap.Int("total_jobs", summary.TotalJobs),
		)
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// rateLimitMiddleware applies the fixed-window counter per client. Without
// a gate it is a no-op; gate backend failures fail open inside Allow.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.gate != nil && !s.gate.Allow(r.Context(), gate.ClientIdentity(r)) {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

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
