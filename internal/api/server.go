// Package api exposes the analysis service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lvonguyen/threatlens/internal/analysis"
	"github.com/lvonguyen/threatlens/internal/observability"
	"github.com/lvonguyen/threatlens/internal/store"
)

// ModelReporter reports how many inference models the collaborator has
// loaded. Implemented by the inference client.
type ModelReporter interface {
	ModelsLoaded(ctx context.Context) int
}

// Server wires the analysis engine and the correlation store to the HTTP
// surface consumed by the collection pipeline.
type Server struct {
	engine   *analysis.Engine
	store    *store.Redis
	models   ModelReporter
	logger   *zap.Logger
	metrics  *observability.Metrics
	validate *validator.Validate
	limiter  *RateLimiter
	version  string

	metricsHandler http.Handler
}

// Options configures optional server collaborators.
type Options struct {
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Version        string
}

// NewServer creates the HTTP server façade.
func NewServer(engine *analysis.Engine, st *store.Redis, models ModelReporter, logger *zap.Logger, opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		engine:         engine,
		store:          st,
		models:         models,
		logger:         logger,
		metrics:        opts.Metrics,
		validate:       validator.New(),
		limiter:        opts.RateLimiter,
		version:        version,
		metricsHandler: opts.MetricsHandler,
	}
}

// Routes builds the chi router with the full endpoint surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	if s.limiter != nil {
		r.With(s.limiter.Middleware).Post("/analyze", s.handleAnalyze)
	} else {
		r.Post("/analyze", s.handleAnalyze)
	}

	r.Get("/iocs/{ioc_type}", s.handleIOCsByType)
	r.Get("/campaigns", s.handleCampaigns)
	r.Post("/correlate", s.handleCorrelate)

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	return r
}

// instrument records request counts and latency per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		s.metrics.RequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// analyzeRequest is the POST /analyze body.
type analyzeRequest struct {
	JobID     string           `json:"job_id"`
	JobType   string           `json:"job_type"`
	Target    string           `json:"target" validate:"required"`
	Results   analysis.Results `json:"results"`
	Timestamp time.Time        `json:"timestamp"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "target is required")
		return
	}

	if req.JobID == "" {
		req.JobID = uuid.New().String()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	result, err := s.engine.Analyze(r.Context(), analysis.Request{
		JobID:     req.JobID,
		JobType:   req.JobType,
		Target:    req.Target,
		Results:   req.Results,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		s.logger.Error("analysis failed",
			zap.String("job_id", req.JobID),
			zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleIOCsByType(w http.ResponseWriter, r *http.Request) {
	iocType := chi.URLParam(r, "ioc_type")

	values, err := s.store.ListIOCsByType(r.Context(), analysis.IOCType(iocType))
	if err != nil {
		s.logger.Error("ioc lookup failed", zap.String("ioc_type", iocType), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "indicator lookup failed")
		return
	}
	if values == nil {
		values = []string{}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"ioc_type": iocType,
		"iocs":     values,
	})
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"campaigns": analysis.CampaignNames(),
	})
}

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	var values []string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		s.respondError(w, http.StatusBadRequest, "request body must be an array of indicator values")
		return
	}

	correlations := make(map[string]*store.IOCMetadata)
	for _, value := range values {
		meta, err := s.store.GetIOCDetails(r.Context(), value)
		if err != nil {
			s.logger.Error("correlation lookup failed", zap.String("value", value), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "correlation lookup failed")
			return
		}
		if meta != nil {
			correlations[value] = meta
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"correlations": correlations,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	modelsLoaded := 0
	if s.models != nil {
		modelsLoaded = s.models.ModelsLoaded(ctx)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"service":       "threatlens",
		"version":       s.version,
		"timestamp":     time.Now().UTC(),
		"models_loaded": modelsLoaded,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("writing response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
