package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/amcchord/slideReports/internal/api/handler"
	mw "github.com/amcchord/slideReports/internal/api/middleware"
	"github.com/amcchord/slideReports/internal/config"
	"github.com/amcchord/slideReports/internal/report"
	"github.com/amcchord/slideReports/internal/store"
)

//go:embed docs/template_schema.json
var templateSchemaJSON []byte

type Server struct {
	router    chi.Router
	logger    zerolog.Logger
	store     *store.Store
	generator *report.Generator
	pool      *pgxpool.Pool
	cfg       *config.Config
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, st *store.Store, gen *report.Generator, cfg *config.Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		store:     st,
		generator: gen,
		pool:      pool,
		cfg:       cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	// Template variable documentation, also consumed by the AI prompt
	s.router.Get("/api/template-schema.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(templateSchemaJSON)
	})

	// Static assets (default logo and report imagery)
	fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	s.router.Handle("/static/*", fileServer)

	reports := handler.NewReport(s.store, s.generator)
	tmpl := handler.NewTemplate(s.store, s.generator)
	prefs := handler.NewPreference(s.store, s.logger)
	clients := handler.NewClient(s.store)

	s.router.Get("/report-values", reports.Values)

	s.router.Route("/api", func(r chi.Router) {
		// Clients
		r.Get("/clients", clients.List)

		// Report templates
		r.Get("/templates", tmpl.List)
		r.Post("/templates", tmpl.Create)
		r.Post("/templates/test", tmpl.Test)
		r.Get("/templates/{id}", tmpl.Get)
		r.Patch("/templates/{id}", tmpl.Update)
		r.Delete("/templates/{id}", tmpl.Delete)
		r.Post("/templates/{id}/clone", tmpl.Clone)

		// Report rendering
		r.Post("/reports/preview", reports.Preview)
		r.Post("/reports/download", reports.Download)

		// Preferences
		r.Post("/preferences/timezone", prefs.SetTimezone)
		r.Post("/preferences/logo", prefs.UploadLogo)
		r.Delete("/preferences/logo", prefs.DeleteLogo)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
