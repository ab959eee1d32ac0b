package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quiverlab/toolgate/internal/config"
	"github.com/quiverlab/toolgate/internal/handler/tools"
	middlewarePkg "github.com/quiverlab/toolgate/internal/middleware"
	"github.com/quiverlab/toolgate/internal/service/conversation"
	"github.com/quiverlab/toolgate/internal/service/document"
	"github.com/quiverlab/toolgate/pkg/utils"
)

// NewRouter wires the tool capabilities to the HTTP surface.
func NewRouter(cfg config.SecurityConfig, backend tools.Backend, store *conversation.Store, cache *document.Cache) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	toolHandler := tools.New(cfg, backend, store, cache)

	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		toolHandler.RegisterRoutes(api)
	})

	return r
}
