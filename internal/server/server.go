// Package server provides the HTTP REST API for skill scoring, role matching
// and roadmap generation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/openings"
	"github.com/skillxpress/skillxpress/internal/server/ratelimit"
	"github.com/skillxpress/skillxpress/internal/types"
)

// Store is the read side of the durable store used by the handlers.
type Store interface {
	Ping(ctx context.Context) error
	GetSkillSnapshot(ctx context.Context, userID uuid.UUID) (*types.SkillSnapshot, error)
	GetRoadmapState(ctx context.Context, userID uuid.UUID) (*types.RoadmapState, error)
	GetUpload(ctx context.Context, userID, uploadID uuid.UUID) (*types.UploadedDocument, error)
}

// SkillRefresher recomputes and persists a user's skill snapshot.
type SkillRefresher interface {
	Refresh(ctx context.Context, userID uuid.UUID, githubUsername string) (*types.SkillSnapshot, error)
}

// RoadmapGenerator advances a user's roadmap by one month.
type RoadmapGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID) (*types.GenerateRoadmapResponse, error)
}

// RoleCatalog is the static role requirement catalog.
type RoleCatalog interface {
	Lookup(name string) (types.Role, error)
	Names() []string
}

// URLSigner issues short-lived download URLs.
type URLSigner interface {
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// OpeningsFeed lists remote job openings annotated with known skills.
type OpeningsFeed interface {
	List(ctx context.Context, known types.SkillScoreMap) ([]openings.Opening, error)
}

// MicroTests grades and reads aptitude micro-tests.
type MicroTests interface {
	Questions(ctx context.Context) ([]types.MicroTestQuestion, error)
	Submit(ctx context.Context, userID uuid.UUID, sub types.MicroTestSubmission) (*types.MicroTestResult, error)
	Latest(ctx context.Context, userID uuid.UUID) (*types.MicroTestResult, error)
}

// Deps are the collaborators of the server. Openings, Signer and MicroTests
// may be nil, in which case their routes answer 503.
type Deps struct {
	Store      Store
	Scorer     SkillRefresher
	Roadmaps   RoadmapGenerator
	Catalog    RoleCatalog
	Signer     URLSigner
	Openings   OpeningsFeed
	MicroTests MicroTests
	Logger     *logger.Logger
}

// Config holds server configuration.
type Config struct {
	Port            int
	UploadsBucket   string
	RoadmapsBucket  string
	SignedURLTTL    time.Duration
	RecomputeWindow time.Duration
	RateLimit       *ratelimit.Config
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	deps        Deps
	cfg         Config
	log         *logger.Logger
	rateLimiter *ratelimit.Limiter
}

// New creates a server with all routes registered.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Scorer == nil || deps.Roadmaps == nil || deps.Catalog == nil {
		return nil, errors.New("server requires a store, scorer, roadmap generator and catalog")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 5 * time.Minute
	}
	if cfg.RecomputeWindow <= 0 {
		cfg.RecomputeWindow = 7 * 24 * time.Hour
	}

	s := &Server{
		deps:        deps,
		cfg:         cfg,
		log:         deps.Logger.With("component", "http"),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /roles", s.handleListRoles)

	mux.HandleFunc("POST /users/{id}/skills/refresh", s.handleRefreshSkills)
	mux.HandleFunc("GET /users/{id}/skills", s.handleGetSkills)
	mux.HandleFunc("GET /users/{id}/roadmap", s.handleGetRoadmap)
	mux.HandleFunc("GET /users/{id}/uploads/{upload_id}/url", s.handleUploadURL)

	mux.HandleFunc("POST /match", s.handleMatch)
	mux.HandleFunc("POST /match/gaps", s.handleGaps)
	mux.HandleFunc("POST /roadmap/generate", s.handleGenerateRoadmap)
	mux.HandleFunc("GET /openings", s.handleOpenings)

	mux.HandleFunc("GET /micro-tests/questions", s.handleMicroTestQuestions)
	mux.HandleFunc("POST /users/{id}/micro-tests", s.handleSubmitMicroTest)
	mux.HandleFunc("GET /users/{id}/micro-tests/latest", s.handleLatestMicroTest)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second, // roadmap generation may retry once
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their endpoint budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("failed to encode response", "error", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID uses the peer address; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		secs := retrySeconds(info.RetryAfter)
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	s.log.Warn("rate limit exceeded", "path", r.URL.Path, "method", r.Method, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// retrySeconds rounds d up to whole seconds, never below one.
func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}
