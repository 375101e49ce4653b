// Package http assembles the QuestionBank HTTP API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/internal/interfaces/http/handlers"
	"github.com/turtacn/QuestionBank/internal/interfaces/http/middleware"
)

// RouterConfig carries the handlers and infrastructure the router mounts.
// Nil handlers leave their routes unmounted.
type RouterConfig struct {
	Taxonomy       *handlers.TaxonomyHandler
	Numbering      *handlers.NumberingHandler
	Questions      *handlers.QuestionHandler
	AnswerKeys     *handlers.AnswerKeyHandler
	Classification *handlers.ClassificationHandler
	Health         *handlers.HealthHandler

	Logger           logging.Logger
	Metrics          *prometheus.QBankMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
	// MaxBodySize caps every request body when positive.
	MaxBodySize int64
	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string
	// RateLimiter, when set, limits /api/v1 per client.
	RateLimiter *middleware.ClientLimiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(chimw.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Liveness)
		r.Get("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(middleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		}
		if h := cfg.Taxonomy; h != nil {
			api.Post("/taxonomy/match", h.Match)
			api.Get("/taxonomy/{category}", h.List)
		}
		if h := cfg.Numbering; h != nil {
			api.Post("/numbering/normalize", h.Normalize)
		}
		if h := cfg.Questions; h != nil {
			api.Route("/questions", func(qr chi.Router) {
				qr.Get("/", h.List)
				qr.Post("/", h.Ingest)
				qr.Post("/split", h.Split)
				qr.Get("/audit", h.Audit)
				qr.Get("/{school}/{year}/{section}/{num}", h.GetGroup)
			})
			api.Get("/papers/{school}/{year}/validation", h.ValidatePaper)
		}
		if h := cfg.AnswerKeys; h != nil {
			api.Route("/answer-keys", func(ar chi.Router) {
				ar.Post("/match", h.Match)
				ar.Post("/bind", h.Bind)
				ar.Post("/import", h.Import)
			})
		}
		if h := cfg.Classification; h != nil {
			api.Post("/classifications", h.Apply)
			api.Post("/classifications/reconcile", h.Reconcile)
		}
	})
	return r
}

//Personal.AI order the ending
