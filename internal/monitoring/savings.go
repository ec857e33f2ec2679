// Package monitoring - savings.go tracks what compress-then-answer saved.
//
// DESIGN: Every ELM run replaces a long prompt with a short summary for the
// expensive model. SavingsTracker accumulates the estimated tokens removed
// and what they would have cost on the expensive model, net of the cheap
// compression call.
package monitoring

import (
	"sync"

	"github.com/gaia-chat/gaia-gateway/internal/costcontrol"
)

// SavingsTracker accumulates ELM savings in memory.
type SavingsTracker struct {
	mu sync.RWMutex

	runs          int
	originalToks  int
	summaryToks   int
	grossSavedUSD float64
	compressUSD   float64
	byModel       map[string]int
}

// SavingsReport is the /stats view of the tracker.
type SavingsReport struct {
	Runs             int            `json:"runs"`
	OriginalTokens   int            `json:"original_tokens"`
	SummaryTokens    int            `json:"summary_tokens"`
	TokensSaved      int            `json:"tokens_saved"`
	SavingsPercent   float64        `json:"savings_percent"`
	EstimatedSaveUSD float64        `json:"estimated_savings_usd"`
	RunsByModel      map[string]int `json:"runs_by_model,omitempty"`
}

// NewSavingsTracker creates an empty tracker.
func NewSavingsTracker() *SavingsTracker {
	return &SavingsTracker{byModel: make(map[string]int)}
}

// Record adds one run: the expensive model saw summaryTokens instead of
// originalTokens, and the cheap model read originalTokens to produce them.
func (s *SavingsTracker) Record(expensiveModel, cheapModel string, originalTokens, summaryTokens int) {
	saved := originalTokens - summaryTokens
	if saved < 0 {
		saved = 0
	}
	gross := costcontrol.CalculateCost(saved, 0, costcontrol.GetModelPricing(expensiveModel))
	compress := costcontrol.CalculateCost(originalTokens, summaryTokens, costcontrol.GetModelPricing(cheapModel))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.originalToks += originalTokens
	s.summaryToks += summaryTokens
	s.grossSavedUSD += gross
	s.compressUSD += compress
	s.byModel[expensiveModel]++
}

// Report returns the accumulated savings.
func (s *SavingsTracker) Report() SavingsReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := SavingsReport{
		Runs:             s.runs,
		OriginalTokens:   s.originalToks,
		SummaryTokens:    s.summaryToks,
		TokensSaved:      max(0, s.originalToks-s.summaryToks),
		EstimatedSaveUSD: s.grossSavedUSD - s.compressUSD,
		RunsByModel:      make(map[string]int, len(s.byModel)),
	}
	if r.OriginalTokens > 0 {
		r.SavingsPercent = float64(r.TokensSaved) / float64(r.OriginalTokens) * 100
	}
	for k, v := range s.byModel {
		r.RunsByModel[k] = v
	}
	return r
}
