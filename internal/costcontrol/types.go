// Package costcontrol implements per-chat cost tracking and budget enforcement.
//
// DESIGN: Every provider call made while answering is priced from the usage
// the provider reported. Tracking is always on (for /costs). Enabled controls
// whether a request is refused up front once a configured cap is reached.
// A chat is keyed by its chat id, else by the caller's identity.
package costcontrol

import (
	"fmt"
	"time"
)

// ChatCost tracks accumulated cost for one chat.
type ChatCost struct {
	Key          string
	Cost         float64
	RequestCount int
	CallCount    int
	Model        string
	CreatedAt    time.Time
	LastUpdated  time.Time
}

// BudgetCheckResult holds the result of a budget check.
type BudgetCheckResult struct {
	Allowed     bool
	CurrentCost float64 // chat cost
	GlobalCost  float64 // all chats
	Cap         float64 // per-chat cap
	GlobalCap   float64
}

// Message is the reply sent instead of an answer when the budget is spent.
func (r BudgetCheckResult) Message() string {
	if r.GlobalCap > 0 && r.GlobalCost >= r.GlobalCap {
		return fmt.Sprintf("The gateway spending limit has been reached ($%.2f of $%.2f). Please try again later.", r.GlobalCost, r.GlobalCap)
	}
	return fmt.Sprintf("This chat has reached its spending limit ($%.2f of $%.2f). Please start a new chat.", r.CurrentCost, r.Cap)
}

// ChatCostSnapshot is a read-only copy of a chat's cost.
type ChatCostSnapshot struct {
	Key          string    `json:"key"`
	Cost         float64   `json:"cost_usd"`
	Cap          float64   `json:"cap_usd"`
	RequestCount int       `json:"requests"`
	CallCount    int       `json:"provider_calls"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}
