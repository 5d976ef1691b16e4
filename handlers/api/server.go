package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-digest/config"
	"github.com/nijaru/yt-digest/digest"
	"github.com/nijaru/yt-digest/llm"
	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/repository"
	"github.com/nijaru/yt-digest/validation"
)

type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID, language string) (string, error)
}

type DigestProcessor interface {
	Process(ctx context.Context, req digest.Request) (string, error)
	Stream(ctx context.Context, req digest.Request) (*llm.Stream, error)
}

type ModelSelector interface {
	SelectForContent(mode digest.Mode, minutes float64, contentType string) (digest.ModelConfig, error)
}

type MetadataProvider interface {
	GetMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error)
}

// CacheStats reports transcript cache counters for the health endpoint.
type CacheStats interface {
	Stats() (hits, misses int64)
	Len() int
}

type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// CreditGuard checks a balance before paid work and deducts after it.
type CreditGuard interface {
	Check(ctx context.Context, userID string) (*models.Profile, error)
	Deduct(ctx context.Context, userID string) (int, error)
}

// Services are the collaborators behind the routes. Metadata, Profiles,
// History and MetricsHandler are optional.
type Services struct {
	Transcripts    TranscriptFetcher
	Processor      DigestProcessor
	Selector       ModelSelector
	Credits        CreditGuard
	Auth           middleware.TokenValidator
	Metadata       MetadataProvider
	Profiles       ProfileReader
	History        repository.DigestRepository
	Cache          CacheStats
	Observer       middleware.RequestObserver
	MetricsHandler http.Handler
}

type Server struct {
	svc       Services
	validator *validation.Validator
	config    *config.Config
	logger    logrus.FieldLogger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer creates a new API server with the provided services and options
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config:    cfg,
		validator: validation.NewValidator(),
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func WithServices(svc Services) ServerOption {
	return func(s *Server) {
		s.svc = svc
	}
}

// WithLogger sets a custom logger for the server
func WithLogger(logger logrus.FieldLogger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Handler exposes the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	s.addV1Routes(mux)

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.config.Metrics.Enabled && s.svc.MetricsHandler != nil {
		mux.Handle("GET "+s.config.Metrics.Path, s.svc.MetricsHandler)
	}

	return s.middleware(mux)
}

func (s *Server) addV1Routes(mux *http.ServeMux) {
	const v1Prefix = "/api/v1"

	s.handle(mux, "POST "+v1Prefix+"/transcript", s.handleTranscript, false)
	s.handle(mux, "POST "+v1Prefix+"/digest", s.handleDigest, true)
	s.handle(mux, "POST "+v1Prefix+"/digest/stream", s.handleDigestStream, true)
	s.handle(mux, "GET "+v1Prefix+"/video-data", s.handleVideoData, true)
	s.handle(mux, "GET "+v1Prefix+"/user/profile", s.handleProfile, true)
	s.handle(mux, "GET "+v1Prefix+"/digests", s.handleDigestHistory, false)
}

// handle mounts h at pattern with per-route metrics and, when protected,
// bearer token authentication.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc, protected bool) {
	var handler http.Handler = h
	if protected {
		if s.svc.Auth == nil {
			handler = http.HandlerFunc(s.authUnavailable)
		} else {
			handler = middleware.Auth(s.svc.Auth)(handler)
		}
	}
	mux.Handle(pattern, middleware.Metrics(s.svc.Observer, pattern)(handler))
}

func (s *Server) authUnavailable(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusServiceUnavailable, "Authentication is not configured")
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	var rateLimiter *middleware.RateLimiter
	if s.config.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		)
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.CORS(s.config.CORS),
		middleware.Timeout(s.config.RequestTimeout),
	}

	if rateLimiter != nil {
		middlewares = append(middlewares, rateLimiter.Middleware)
	}

	return middleware.Chain(handler, middlewares...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   s.config.Version,
		"uptime":    time.Since(s.startTime).String(),
	}

	if s.svc.Cache != nil {
		hits, misses := s.svc.Cache.Stats()
		status["cache"] = map[string]interface{}{
			"hits":    hits,
			"misses":  misses,
			"entries": s.svc.Cache.Len(),
		}
	}

	if s.config.Debug {
		status["debug"] = true
		status["goroutines"] = runtime.NumGoroutine()
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status["memory"] = map[string]interface{}{
			"allocated": m.Alloc,
			"total":     m.TotalAlloc,
			"system":    m.Sys,
			"gc_cycles": m.NumGC,
		}
	}

	respondJSON(w, r, http.StatusOK, status)
}
