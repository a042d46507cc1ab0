package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/experiment-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/experiment-scheduler/internal/http/middleware"
	"github.com/wolfman30/experiment-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Participants       *handlers.ParticipantHandler
	Experimenter       *handlers.ExperimenterHandler
	Health             *handlers.HealthHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP limit on /api/v1; zero RPS disables it.
	RateLimitRPS   float64
	RateLimitBurst int
	// Stop ends background sweeping of the rate limiter.
	Stop           <-chan struct{}
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.Health)
			public.Get("/ready", cfg.Health.Ready)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.NoCache)
		if cfg.RateLimitRPS > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Stop))
		}
		if cfg.Participants != nil {
			cfg.Participants.RegisterRoutes(api)
		}
		if cfg.Experimenter != nil {
			cfg.Experimenter.RegisterRoutes(api)
		}
	})

	return r
}
