// Package store persists chat turns per user.
//
// DESIGN: Persistence is a side effect of answering, never a precondition.
// The orchestrator writes the user turn and the assistant reply after the
// reply is produced and only logs store failures. Identity is an opaque
// string taken from the request; an empty identity never reaches a store.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// ErrNotFound is returned when a chat does not exist for the user.
var ErrNotFound = errors.New("chat not found")

// ErrInvalidID is returned for empty user or chat ids.
var ErrInvalidID = errors.New("user id and chat id are required")

const titleRunes = 60

// Turn is one persisted message.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is one entry of a chat listing.
type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chat is a full conversation.
type Chat struct {
	ChatSummary
	UserID string `json:"user_id"`
	Turns  []Turn `json:"messages"`
}

// Store is the chat persistence collaborator.
type Store interface {
	// AppendTurns adds turns to a chat, creating it on first use.
	AppendTurns(ctx context.Context, userID, chatID string, turns ...Turn) error
	// ListChats returns the user's chats, most recently updated first.
	ListChats(ctx context.Context, userID string) ([]ChatSummary, error)
	// GetChat returns one chat with all its turns.
	GetChat(ctx context.Context, userID, chatID string) (*Chat, error)
	Close() error
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.StoreNone:
		return Noop{}, nil
	case config.StoreSQLite:
		return NewSQLite(ctx, cfg.Path)
	case config.StoreRedis:
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// titleFrom derives a chat title from the first user turn.
func titleFrom(turns []Turn) string {
	for _, t := range turns {
		if t.Role != "user" {
			continue
		}
		title := strings.Join(strings.Fields(t.Content), " ")
		if r := []rune(title); len(r) > titleRunes {
			title = string(r[:titleRunes]) + "…"
		}
		return title
	}
	return "New chat"
}

func stamp(turns []Turn, now time.Time) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		out[i] = t
	}
	return out
}

func validIDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidID
		}
	}
	return nil
}

// Noop discards writes and finds nothing.
type Noop struct{}

func (Noop) AppendTurns(context.Context, string, string, ...Turn) error { return nil }

func (Noop) ListChats(context.Context, string) ([]ChatSummary, error) { return []ChatSummary{}, nil }

func (Noop) GetChat(context.Context, string, string) (*Chat, error) { return nil, ErrNotFound }

func (Noop) Close() error { return nil }
