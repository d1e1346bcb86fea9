package server

import (
	"net/http"

	"github.com/florianreyes/shipba-rag/internal/api"
	"github.com/florianreyes/shipba-rag/internal/api/handlers"
	"github.com/florianreyes/shipba-rag/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AuthValidator  middleware.AuthValidator
	SearchHandler  *handlers.SearchHandler
	ProfileHandler *handlers.ProfileHandler
	APIKeyHandler  *handlers.APIKeyHandler
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/form", cfg.ProfileHandler.Form)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/search", cfg.SearchHandler.Search)

		r.Route("/profiles/me", func(r chi.Router) {
			r.Get("/", cfg.ProfileHandler.GetMe)
			r.Put("/", cfg.ProfileHandler.UpdateMe)
			r.Put("/content", cfg.ProfileHandler.UpdateContent)
		})

		r.Route("/apikeys", func(r chi.Router) {
			r.Post("/", cfg.APIKeyHandler.Create)
			r.Get("/", cfg.APIKeyHandler.List)
		})
	})

	return r
}
