package server

import (
	"net/http"

	"github.com/cloo-solutions/consultbot/internal/api"
	"github.com/cloo-solutions/consultbot/internal/api/handlers"
	"github.com/cloo-solutions/consultbot/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes applies when RouterConfig.MaxBodyBytes is zero.
const DefaultMaxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	// AuthValidator guards /v1. Nil leaves the API open.
	AuthValidator  middleware.AuthValidator
	SessionHandler *handlers.SessionHandler
	SearchHandler  *handlers.SearchHandler
	Logger         *zap.Logger
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.LimitBody(maxBody))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", cfg.SessionHandler.Create)
			r.Get("/{id}", cfg.SessionHandler.Get)
			r.Delete("/{id}", cfg.SessionHandler.Delete)
			r.Post("/{id}/messages", cfg.SessionHandler.Ask)
			r.Put("/{id}/specialty", cfg.SessionHandler.SetSpecialty)
			r.Delete("/{id}/memory", cfg.SessionHandler.ResetMemory)
		})

		r.Get("/specialties", cfg.SessionHandler.ListSpecialties)
		r.Post("/search", cfg.SearchHandler.Search)
		r.Get("/corpus", cfg.SearchHandler.Corpus)
		r.Get("/faq", cfg.SearchHandler.FAQ)
	})

	return r
}
