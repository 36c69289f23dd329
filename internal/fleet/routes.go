package fleet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts driver and position endpoints. extra lets other modules
// attach driver-scoped routes (e.g. /{id}/schengen) under the same router.
func SetupRoutes(extra ...func(r chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListDrivers)
	r.Post("/", CreateDriver)
	r.Get("/{id}", GetDriver)
	r.Get("/{id}/positions", ListPositions)
	r.Post("/{id}/positions", CreatePositions)

	for _, fn := range extra {
		fn(r)
	}

	return r
}
