// Package gateway provides an HTTP server for monitoring the bridge. It
// binds to loopback by default and follows the module system pattern.
package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/flemzord/telega-server/internal/core"
)

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleGetAllModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetConfig returns the loaded module configuration with secrets
// redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.loaded == nil {
			http.Error(w, "config not available", http.StatusServiceUnavailable)
			return
		}

		modules := make(map[string]any, len(g.loaded.Modules))
		for id, node := range g.loaded.Modules {
			var v any
			if err := node.Decode(&v); err != nil {
				http.Error(w, "failed to decode config", http.StatusInternalServerError)
				return
			}
			modules[id] = v
		}

		generic := map[string]any{
			"version":   g.loaded.Version,
			"log_level": g.loaded.LogLevel,
			"modules":   modules,
		}
		g.redactor.RedactMap(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
