package costcontrol

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

func TestGetModelPricing(t *testing.T) {
	tests := []struct {
		model string
		want  ModelPricing
	}{
		{"llama-3.3-70b-versatile", ModelPricing{0.59, 0.79}},
		{"GPT-5-mini-2025-08-07", ModelPricing{0.25, 2}},
		{"gpt-5-preview", ModelPricing{1.25, 10}},
		{"anthropic.claude-3-haiku-20240307-v1:0", ModelPricing{0.25, 1.25}},
		{"llama3.2:1b", ModelPricing{}},
		{"mystery-model", defaultPricing},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, GetModelPricing(tt.model))
		})
	}
}

func TestCalculateCost(t *testing.T) {
	cost := CalculateCost(1_000_000, 500_000, ModelPricing{InputPerMTok: 2, OutputPerMTok: 10})
	assert.InDelta(t, 7.0, cost, 1e-9)
}

func TestTracker_RecordAndBudget(t *testing.T) {
	tr := NewTracker(config.CostControlConfig{Enabled: true, SessionCap: 1.0}, 0)

	cost := tr.RecordRequest("chat-1", "gpt-5", []Call{
		{Model: "gpt-5-nano", InputTokens: 1000, OutputTokens: 100},
		{Model: "gpt-5", InputTokens: 400_000, OutputTokens: 50_000},
	})
	assert.InDelta(t, 0.00009+0.5+0.5, cost, 1e-9)
	assert.InDelta(t, cost, tr.ChatCost("chat-1"), 1e-9)
	assert.InDelta(t, cost, tr.GlobalCost(), 1e-6)

	res := tr.CheckBudget("chat-1")
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Message(), "This chat has reached its spending limit")

	assert.True(t, tr.CheckBudget("chat-2").Allowed)
}

func TestTracker_GlobalCapAndDisabled(t *testing.T) {
	tr := NewTracker(config.CostControlConfig{Enabled: true, GlobalCap: 0.5}, 0)
	tr.RecordRequest("a", "", []Call{{Model: "gpt-5", InputTokens: 400_000}})

	res := tr.CheckBudget("b")
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Message(), "gateway spending limit")

	off := NewTracker(config.CostControlConfig{Enabled: false, GlobalCap: 0.01}, 0)
	off.RecordRequest("a", "", []Call{{Model: "gpt-5", InputTokens: 400_000}})
	assert.True(t, off.CheckBudget("a").Allowed)
}

func TestTracker_SweepExpiresIdleChats(t *testing.T) {
	tr := NewTracker(config.CostControlConfig{}, time.Hour)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	tr.RecordRequest("old", "m", []Call{{Model: "gpt-4o", InputTokens: 1_000_000}})
	now = now.Add(2 * time.Hour)
	tr.RecordRequest("new", "m", []Call{{Model: "gpt-4o", InputTokens: 1_000_000}})

	assert.Equal(t, 1, tr.sweep())
	assert.Zero(t, tr.ChatCost("old"))
	assert.InDelta(t, 2.5, tr.GlobalCost(), 1e-6)
}

func TestHandleCosts(t *testing.T) {
	tr := NewTracker(config.CostControlConfig{Enabled: true, SessionCap: 2, GlobalCap: 0.25}, 0)
	tr.RecordRequest("c1", "gpt-4o", []Call{{Model: "gpt-4o", InputTokens: 1000, OutputTokens: 1000}})

	rec := httptest.NewRecorder()
	tr.HandleCosts(rec, httptest.NewRequest("GET", "/costs", nil))

	var r Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, 1, r.TotalRequests)
	assert.Equal(t, "$2.00/chat, $0.2500 global", r.Caps)
	require.Len(t, r.Chats, 1)
	assert.Equal(t, "gpt-4o", r.Chats[0].Model)
}
