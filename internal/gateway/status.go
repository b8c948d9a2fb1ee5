package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/telega-server/internal/metrics"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime  time.Duration    `json:"uptime_ns"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:  time.Since(g.startedAt).Truncate(time.Second),
			Metrics: g.metrics.Snapshot(),
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
