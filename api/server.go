package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"jortega/reviewscout/config"
	"jortega/reviewscout/logger"
	"jortega/reviewscout/services/store"
)

// Server exposes the job queue and stored analysis results over HTTP
type Server struct {
	store         store.Store
	log           *logger.Logger
	pageSizeLimit int
	defaultSource string
	allowedOrigin string
	limiter       *rate.Limiter
}

// NewServer creates an API server backed by the given store
func NewServer(st store.Store, cfg *config.Config) *Server {
	return &Server{
		store:         st,
		log:           logger.ForAPI(),
		pageSizeLimit: cfg.APIPageSizeLimit,
		defaultSource: "google_maps",
		allowedOrigin: cfg.APIAllowedOrigin,
		limiter:       rate.NewLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst),
	}
}

// Router builds the chi router with middleware and all routes mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.allowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.requestLogger)
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)

	r.Post("/business/analyze", s.handleAnalyze)
	r.Get("/business", s.handleListBusinesses)
	r.Get("/business/{id}", s.handleGetBusiness)
	r.Get("/business/{id}/reviews", s.handleListReviews)
	r.Get("/business/{id}/analysis", s.handleLatestAnalysis)
	r.Get("/business/{id}/analyses", s.handleListAnalyses)

	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{id}", s.handleGetJob)

	return r
}
