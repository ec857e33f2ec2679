package costcontrol

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Report is the cost summary served on /costs.
type Report struct {
	TotalCost     float64            `json:"total_cost_usd"`
	TotalRequests int                `json:"total_requests"`
	Chats         []ChatCostSnapshot `json:"chats"`
	Enforced      bool               `json:"enforced"`
	Caps          string             `json:"caps"`
}

// Report builds the cost summary, most recently active chats first.
func (t *Tracker) Report() Report {
	chats := t.AllChats()
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastUpdated.After(chats[j].LastUpdated)
	})

	r := Report{Chats: chats, Enforced: t.config.Enabled, Caps: t.capsLabel()}
	for _, c := range chats {
		r.TotalCost += c.Cost
		r.TotalRequests += c.RequestCount
	}
	return r
}

// HandleCosts serves the cost report as JSON.
func (t *Tracker) HandleCosts(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(t.Report())
}

func (t *Tracker) capsLabel() string {
	cfg := t.config
	if !cfg.Enabled || (cfg.SessionCap <= 0 && cfg.GlobalCap <= 0) {
		return "unlimited"
	}
	var parts []string
	if cfg.SessionCap > 0 {
		parts = append(parts, fmt.Sprintf("$%s/chat", formatCost(cfg.SessionCap)))
	}
	if cfg.GlobalCap > 0 {
		parts = append(parts, fmt.Sprintf("$%s global", formatCost(cfg.GlobalCap)))
	}
	return strings.Join(parts, ", ")
}

// formatCost formats a dollar amount, using more decimal places for small values.
func formatCost(v float64) string {
	if v >= 1.0 {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.4f", v)
}
