// Package gateway - stats.go exposes aggregated metrics as JSON.
//
// GET /stats combines request counters, provider calls, ELM savings and the
// most recent requests.
package gateway

import (
	"encoding/json"
	"net/http"
)

const recentRequests = 20

// handleStats returns aggregated metrics as JSON.
func (g *Gateway) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := g.metrics.FullStats()
	resp.ELM = g.savings.Report()
	if g.requests != nil {
		resp.Recent = g.requests.Recent(recentRequests)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_ = json.NewEncoder(w).Encode(resp)
}
