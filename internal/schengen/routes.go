package schengen

import (
	"net/http"
	"time"

	"github.com/dispatchly/fleet-backend/internal/middleware"
	"github.com/dispatchly/fleet-backend/internal/utils"
	"github.com/go-chi/chi/v5"
)

// DriverRoutes attaches the per-driver endpoints to the fleet /drivers
// router. The caller must already have put a role in the request context.
func DriverRoutes(h *Handlers) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/{id}/schengen", h.GetCompliance)
		r.With(middleware.RoleMiddleware(utils.RoleAdmin, utils.RoleDispatcher)).
			Post("/{id}/schengen-override", h.PostOverride)
	}
}

// SetupRoutes mounts the fleet-wide endpoints under /schengen.
func SetupRoutes(h *Handlers, tokens middleware.TokenResolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.TokenMiddleware(tokens))

	r.With(middleware.RoleMiddleware(utils.RoleAdmin, utils.RoleDispatcher)).
		Get("/summary", h.Summary)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RoleMiddleware(utils.RoleAdmin))

		r.With(middleware.RateLimit(time.Minute, 2)).Post("/aggregate", h.AggregateAll)
		r.Post("/aggregate/{driverId}", h.AggregateDriver)
	})

	return r
}
