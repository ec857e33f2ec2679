// Package gateway - stream.go serves streamed answers over SSE and websocket.
//
// DESIGN: Streaming is presentation pacing. The full reply is produced first,
// then cut into word groups:
//
//	start{ok, model} → delta{text} × N → done{ok}
//
// An empty question yields error{message} → done{ok:false}. SSE and
// websocket share the event list; only the framing differs.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/orchestrator"
	"github.com/gaia-chat/gaia-gateway/internal/utils"
)

const wsReadTimeout = 30 * time.Second

// answerEvents runs req and returns the events to stream.
func (g *Gateway) answerEvents(ctx context.Context, req orchestrator.Request) []streamEvent {
	if strings.TrimSpace(req.Question) == "" && len(req.Files) == 0 {
		return []streamEvent{
			{Event: eventError, Data: errorData{Message: orchestrator.EmptyQuestionMessage}},
			{Event: eventDone, Data: doneData{OK: false}},
		}
	}

	res := g.svc.Answer(ctx, req)
	chunks := wordChunks(strings.TrimSpace(res.Reply), g.svc.StreamWords())

	events := make([]streamEvent, 0, len(chunks)+2)
	events = append(events, streamEvent{Event: eventStart, Data: startData{OK: true, Model: res.ModelUsed, ChatID: res.ChatID}})
	for _, c := range chunks {
		events = append(events, streamEvent{Event: eventDelta, Data: deltaData{Text: c}})
	}
	return append(events, streamEvent{Event: eventDone, Data: doneData{OK: true}})
}

// wordChunks splits text on single spaces into groups of n tokens, each
// followed by one trailing space.
func wordChunks(text string, n int) []string {
	if text == "" {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	toks := strings.Split(text, " ")
	out := make([]string, 0, len(toks)/n+1)
	for i := 0; i < len(toks); i += n {
		end := min(i+n, len(toks))
		out = append(out, strings.Join(toks[i:end], " ")+" ")
	}
	return out
}

// =============================================================================
// SSE
// =============================================================================

// handleStream serves GET /ask/stream.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	req := decodeQuery(r.URL.Query())
	req.UserID = userID(r)
	req.Transport = transportSSE

	events := g.answerEvents(r.Context(), req)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	for _, ev := range events {
		if err := writeSSE(w, ev); err != nil {
			log.Debug().Err(err).Msg("gateway: sse client disconnected")
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev streamEvent) error {
	data, err := utils.MarshalNoEscape(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Event, data)
	return err
}

// =============================================================================
// WEBSOCKET
// =============================================================================

// handleWebsocket serves GET /ask/ws. The client sends one JSON request in
// the POST /ask shape and receives {event, data} frames.
func (g *Gateway) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: corsOrigins(g.cfg.Server.CORSOrigins),
	})
	if err != nil {
		log.Debug().Err(err).Msg("gateway: websocket accept failed")
		return
	}
	defer conn.CloseNow()

	readCtx, cancel := context.WithTimeout(r.Context(), wsReadTimeout)
	_, raw, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("gateway: websocket read failed")
		return
	}

	req := decodeJSON(raw)
	req.UserID = userID(r)
	req.Transport = transportWS

	ctx := r.Context()
	for _, ev := range g.answerEvents(ctx, req) {
		frame, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			log.Debug().Err(err).Msg("gateway: websocket client disconnected")
			return
		}
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}
