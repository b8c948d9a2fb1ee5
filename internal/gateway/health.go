package gateway

import (
	"encoding/json"
	"net/http"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"` // "ok" or "finished"
	Bridge string `json:"bridge"` // "connected", "disconnected" or "absent"
	Error  string `json:"error,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 while the editor is connected, 503 once the bridge finished.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Bridge: "absent",
		}

		if g.bridge != nil {
			resp.Bridge = "connected"
			select {
			case <-g.bridge.Done():
				resp.Status = "finished"
				resp.Bridge = "disconnected"
				if err := g.bridge.Err(); err != nil {
					resp.Error = err.Error()
				}
			default:
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
