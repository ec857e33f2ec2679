// Package gateway types - wire shapes of the HTTP surface.
package gateway

import (
	"github.com/gaia-chat/gaia-gateway/internal/ingest"
	"github.com/gaia-chat/gaia-gateway/internal/orchestrator"
)

// askResponse is the body of POST /ask.
type askResponse struct {
	OK     bool         `json:"ok"`
	Reply  string       `json:"reply"`
	Model  string       `json:"model,omitempty"`
	Meta   *ingest.Meta `json:"meta,omitempty"`
	ChatID string       `json:"chat_id,omitempty"`
}

func newAskResponse(res orchestrator.ReplyResult) askResponse {
	return askResponse{OK: true, Reply: res.Reply, Model: res.ModelUsed, Meta: res.Meta, ChatID: res.ChatID}
}

// =============================================================================
// STREAM EVENTS - shared by SSE and websocket
// =============================================================================

const (
	eventStart = "start"
	eventDelta = "delta"
	eventDone  = "done"
	eventError = "error"
)

// streamEvent is one event of a streamed answer.
type streamEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type startData struct {
	OK     bool   `json:"ok"`
	Model  string `json:"model"`
	ChatID string `json:"chat_id,omitempty"`
}

type deltaData struct {
	Text string `json:"text"`
}

type doneData struct {
	OK bool `json:"ok"`
}

type errorData struct {
	Message string `json:"message"`
}
