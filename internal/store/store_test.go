package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// exercise runs the shared contract against any Store.
func exercise(t *testing.T, s Store, tick func()) {
	ctx := context.Background()

	require.NoError(t, s.AppendTurns(ctx, "u1", "c1",
		Turn{Role: "user", Content: "What is   2+2?"},
		Turn{Role: "assistant", Content: "4", Model: "llama-3.3-70b-versatile"},
	))
	tick()
	require.NoError(t, s.AppendTurns(ctx, "u1", "c2", Turn{Role: "user", Content: "second chat"}))
	tick()
	require.NoError(t, s.AppendTurns(ctx, "u1", "c1", Turn{Role: "user", Content: "and 3+3?"}))
	require.NoError(t, s.AppendTurns(ctx, "u2", "c9", Turn{Role: "user", Content: "other user"}))

	chats, err := s.ListChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "c1", chats[0].ID, "most recently updated first")
	assert.Equal(t, "What is 2+2?", chats[0].Title)
	assert.Equal(t, 3, chats[0].Turns)
	assert.Equal(t, "c2", chats[1].ID)

	chat, err := s.GetChat(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Len(t, chat.Turns, 3)
	assert.Equal(t, "assistant", chat.Turns[1].Role)
	assert.Equal(t, "llama-3.3-70b-versatile", chat.Turns[1].Model)
	assert.Equal(t, "and 3+3?", chat.Turns[2].Content)
	assert.False(t, chat.Turns[0].CreatedAt.IsZero())

	_, err = s.GetChat(ctx, "u2", "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.AppendTurns(ctx, "", "c1", Turn{Role: "user", Content: "x"}), ErrInvalidID)
}

func fakeNow() (func() time.Time, func()) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return now }, func() { now = now.Add(time.Second) }
}

func TestSQLite(t *testing.T) {
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "gaia.db"))
	require.NoError(t, err)
	defer s.Close()

	now, tick := fakeNow()
	s.now = now
	exercise(t, s, tick)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("GAIA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GAIA_TEST_REDIS_ADDR not set")
	}
	s, err := NewRedis(context.Background(), addr, "", 15)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer s.Close()
	require.NoError(t, s.rdb.FlushDB(context.Background()).Err())

	now, tick := fakeNow()
	s.now = now
	exercise(t, s, tick)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var s Store = Noop{}
	require.NoError(t, s.AppendTurns(ctx, "u", "c", Turn{Role: "user", Content: "x"}))
	chats, err := s.ListChats(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, chats)
	_, err = s.GetChat(ctx, "u", "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_SelectsDriver(t *testing.T) {
	s, err := New(context.Background(), config.StoreConfig{Driver: config.StoreNone})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, s)

	s, err = New(context.Background(), config.StoreConfig{Driver: config.StoreSQLite, Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = New(context.Background(), config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestTitleFrom(t *testing.T) {
	assert.Equal(t, "New chat", titleFrom([]Turn{{Role: "assistant", Content: "hi"}}))
	long := titleFrom([]Turn{{Role: "user", Content: strings.Repeat("é", 100)}})
	assert.Equal(t, titleRunes+1, len([]rune(long)))
}
