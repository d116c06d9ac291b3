package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/middleware"
)

// RouteRegistrar is implemented by every handler mounted on the router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// NewRouter builds the HTTP router with request IDs, logging and panic recovery.
func NewRouter(logger *zap.Logger, handlers ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	for _, h := range handlers {
		h.RegisterRoutes(r)
	}
	return r
}
