package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/eduparse/internal/config"
	"github.com/dgallion1/eduparse/internal/document"
	"github.com/dgallion1/eduparse/internal/extract"
)

// Extractor runs one extraction over a document handle.
type Extractor interface {
	Extract(ctx context.Context, h *document.Handle, kind extract.Kind, limit int) (*extract.Result, error)
}

// Server is the HTTP API in front of the extraction engine.
type Server struct {
	router    chi.Router
	extractor Extractor
	stats     *extract.Stats
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(ex Extractor, stats *extract.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		extractor: ex,
		stats:     stats,
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.ParserAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.ParserAPIKey, s.log))
		}

		r.Post("/parse-students", s.parseHandler(extract.KindStudent))
		r.Post("/parse-disciplines", s.parseHandler(extract.KindDiscipline))
		r.Post("/parse-educational-programs", s.parseHandler(extract.KindProgram))
		r.Post("/extract", s.handleUpload)

		r.Get("/debug/files", s.handleListFiles)
		r.Get("/stats/extract", s.handleExtractStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
