// Package httpserver provides the HTTP REST API of the research assistant.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/document"
	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/pipeline"
	"github.com/helixir/research-assistant-service/internal/session"
)

// Pipeline is the research pipeline used by the handlers.
type Pipeline interface {
	Discover(ctx context.Context, s *session.Session, query, documentText string) (*pipeline.Discovery, error)
	SetSelection(s *session.Session, ids []string) error
	RunEnrichment(ctx context.Context, s *session.Session, kind domain.EnrichmentKind) (*domain.EnrichmentResult, error)
	DetectIntent(ctx context.Context, message string) ([]llm.Intent, error)
}

// Sessions stores research sessions.
type Sessions interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

// DocumentExtractor turns uploaded bytes into text.
type DocumentExtractor interface {
	Extract(filename, contentType string, data []byte) (string, error)
}

// DocumentFetcher downloads a document by URL.
type DocumentFetcher interface {
	Download(ctx context.Context, rawURL string) (*document.Downloaded, error)
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MaxUploadBytes bounds multipart document uploads. Default: 20 MiB.
	MaxUploadBytes int64
}

// Dependencies are the collaborators of the HTTP server. Extractor and
// Fetcher may be nil, which disables document uploads and document URLs.
type Dependencies struct {
	Pipeline  Pipeline
	Sessions  Sessions
	Extractor DocumentExtractor
	Fetcher   DocumentFetcher
	Metrics   *observability.Metrics
	// Readiness checks run by /readyz, keyed by dependency name.
	Readiness map[string]ReadinessCheck
}

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	pipeline       Pipeline
	sessions       Sessions
	extractor      DocumentExtractor
	fetcher        DocumentFetcher
	metrics        *observability.Metrics
	readiness      map[string]ReadinessCheck
	validate       *validator.Validate
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Dependencies, logger zerolog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}

	s := &Server{
		pipeline:       deps.Pipeline,
		sessions:       deps.Sessions,
		extractor:      deps.Extractor,
		fetcher:        deps.Fetcher,
		metrics:        deps.Metrics,
		readiness:      deps.Readiness,
		validate:       newValidator(),
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.contextLoggerMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/intents", s.detectIntent)

		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/discover", s.discover)
			r.Get("/candidates", s.listCandidates)
			r.Get("/candidates/export", s.exportCandidates)
			r.Put("/selection", s.setSelection)
			r.Post("/enrichments/{kind}", s.runEnrichment)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler runs the configured dependency checks.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ready"}
	code := http.StatusOK
	for name, check := range s.readiness {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			status["status"] = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "healthy"
	}
	writeJSON(w, code, status)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}
