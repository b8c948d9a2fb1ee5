package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public, loopback by default.
	r.Get("/health", g.handleHealth())
	r.Method(http.MethodGet, "/metrics", g.metrics.Handler())

	// Admin endpoints require auth and are not mounted without it.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", g.handleGetAllModules())
				r.Get("/config", g.handleGetConfig())
			})
		})
	}

	return r
}
