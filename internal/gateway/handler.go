// Package gateway - handler.go serves POST /ask and the small JSON routes.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/orchestrator"
	"github.com/gaia-chat/gaia-gateway/internal/store"
	gwtelemetry "github.com/gaia-chat/gaia-gateway/internal/telemetry"
)

// Transport labels recorded with every request.
const (
	transportJSON      = "json"
	transportMultipart = "multipart"
	transportSSE       = "sse"
	transportWS        = "ws"
)

// handleAsk answers a JSON or multipart question.
func (g *Gateway) handleAsk(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("gateway: ask handler panicked")
			writeJSON(w, http.StatusInternalServerError, askResponse{OK: false, Reply: fmt.Sprintf("Error: %v", rec)})
		}
	}()

	var (
		req orchestrator.Request
		err error
	)
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, g.maxUploadBytes)
		req, err = decodeMultipart(r)
		req.Transport = transportMultipart
	} else {
		var body []byte
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
		req = decodeJSON(body)
		req.Transport = transportJSON
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, askResponse{OK: false, Reply: "Error: " + err.Error()})
		return
	}
	req.UserID = userID(r)

	res := g.svc.Answer(r.Context(), req)
	writeJSON(w, http.StatusOK, newAskResponse(res))
}

// handleHealth reports liveness.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"version": gwtelemetry.Version,
	})
}

// handleVersions lists catalog entries for ?keys=a,b (all keys when empty).
// force=1 refreshes from the providers first.
func (g *Gateway) handleVersions(w http.ResponseWriter, r *http.Request) {
	if g.catalog == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	var keys []string
	for _, k := range strings.Split(r.URL.Query().Get("keys"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	force := isTruthy(r.URL.Query().Get("force"))
	writeJSON(w, http.StatusOK, g.catalog.List(r.Context(), keys, force))
}

// handleListChats lists the caller's chats, most recent first.
func (g *Gateway) handleListChats(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
		return
	}
	chats, err := g.store.ListChats(r.Context(), user)
	if err != nil {
		g.storeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// handleGetChat returns one chat with its turns.
func (g *Gateway) handleGetChat(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
		return
	}
	c, err := g.store.GetChat(r.Context(), user, chi.URLParam(r, "chatID"))
	if err != nil {
		g.storeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (g *Gateway) storeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid chat id")
	case ctx.Err() != nil:
		writeError(w, http.StatusRequestTimeout, "request cancelled")
	default:
		log.Error().Err(err).Msg("gateway: chat store failed")
		writeError(w, http.StatusInternalServerError, "chat store unavailable")
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"ok":    false,
		"error": map[string]string{"message": msg, "type": "gateway_error"},
	})
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
