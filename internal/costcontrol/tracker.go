package costcontrol

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// Tracker tracks per-chat API costs and enforces budget caps.
// Cost tracking is always active. Budget enforcement only applies
// when Enabled is true and at least one cap is configured.
type Tracker struct {
	config config.CostControlConfig
	ttl    time.Duration
	now    func() time.Time
	chats  map[string]*ChatCost
	mu     sync.RWMutex

	// Global cost in nano-dollars for lock-free budget checks.
	globalCostNano int64
}

// NewTracker creates a cost tracker. Idle chats are forgotten after ttl once
// Run is started; ttl <= 0 uses the default.
func NewTracker(cfg config.CostControlConfig, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = config.DefaultCostSessionTTL
	}
	return &Tracker{
		config: cfg,
		ttl:    ttl,
		now:    time.Now,
		chats:  make(map[string]*ChatCost),
	}
}

// Run sweeps idle chats every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.sweep(); n > 0 {
				log.Debug().Int("chats", n).Msg("costcontrol: expired idle chats")
			}
		}
	}
}

// CheckBudget reports whether key may make another request.
func (t *Tracker) CheckBudget(key string) BudgetCheckResult {
	t.mu.RLock()
	chatCost := 0.0
	if c := t.chats[key]; c != nil {
		chatCost = c.Cost
	}
	t.mu.RUnlock()

	res := BudgetCheckResult{
		Allowed:     true,
		CurrentCost: chatCost,
		GlobalCost:  t.GlobalCost(),
		Cap:         t.config.SessionCap,
		GlobalCap:   t.config.GlobalCap,
	}
	if !t.config.Enabled {
		return res
	}
	if res.GlobalCap > 0 && res.GlobalCost >= res.GlobalCap {
		res.Allowed = false
	}
	if res.Cap > 0 && res.CurrentCost >= res.Cap {
		res.Allowed = false
	}
	return res
}

// GlobalCost returns total accumulated cost across all chats.
func (t *Tracker) GlobalCost() float64 {
	return float64(atomic.LoadInt64(&t.globalCostNano)) / 1e9
}

// Call is one priced provider call.
type Call struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// RecordRequest prices every call made for one answered request and adds
// the total to key. It returns the request cost.
func (t *Tracker) RecordRequest(key, servedModel string, calls []Call) float64 {
	var cost float64
	for _, c := range calls {
		cost += CalculateCost(c.InputTokens, c.OutputTokens, GetModelPricing(c.Model))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	c, ok := t.chats[key]
	if !ok {
		c = &ChatCost{Key: key, CreatedAt: now}
		t.chats[key] = c
	}
	c.Cost += cost
	c.RequestCount++
	c.CallCount += len(calls)
	c.LastUpdated = now
	if servedModel != "" {
		c.Model = servedModel
	}
	atomic.AddInt64(&t.globalCostNano, int64(cost*1e9))
	return cost
}

// ChatCost returns the accumulated cost of key.
func (t *Tracker) ChatCost(key string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.chats[key]; ok {
		return c.Cost
	}
	return 0
}

// AllChats returns a snapshot of all tracked chats.
func (t *Tracker) AllChats() []ChatCostSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ChatCostSnapshot, 0, len(t.chats))
	for _, c := range t.chats {
		out = append(out, ChatCostSnapshot{
			Key:          c.Key,
			Cost:         c.Cost,
			Cap:          t.config.SessionCap,
			RequestCount: c.RequestCount,
			CallCount:    c.CallCount,
			Model:        c.Model,
			CreatedAt:    c.CreatedAt,
			LastUpdated:  c.LastUpdated,
		})
	}
	return out
}

// Config returns the tracker's config.
func (t *Tracker) Config() config.CostControlConfig { return t.config }

func (t *Tracker) sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	n := 0
	for key, c := range t.chats {
		if now.Sub(c.LastUpdated) > t.ttl {
			atomic.AddInt64(&t.globalCostNano, -int64(c.Cost*1e9))
			delete(t.chats, key)
			n++
		}
	}
	return n
}
