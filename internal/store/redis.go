package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout:
//
//	gaia:chats:{user}              ZSET  chat id scored by updated_at (unix ms)
//	gaia:chat:{user}:{chat}:meta   HASH  title, created_at, updated_at
//	gaia:chat:{user}:{chat}:turns  LIST  JSON-encoded turns, oldest first
const keyPrefix = "gaia:"

// Redis stores chats in Redis.
type Redis struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{rdb: rdb, now: time.Now}, nil
}

func chatsKey(user string) string { return keyPrefix + "chats:" + user }
func metaKey(user, chat string) string { return keyPrefix + "chat:" + user + ":" + chat + ":meta" }
func turnsKey(user, chat string) string { return keyPrefix + "chat:" + user + ":" + chat + ":turns" }

func (s *Redis) AppendTurns(ctx context.Context, userID, chatID string, turns ...Turn) error {
	if err := validIDs(userID, chatID); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}
	now := s.now().UTC()
	turns = stamp(turns, now)

	encoded := make([]any, len(turns))
	for i, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		encoded[i] = b
	}

	ts := strconv.FormatInt(now.UnixMilli(), 10)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, metaKey(userID, chatID), "title", titleFrom(turns))
		pipe.HSetNX(ctx, metaKey(userID, chatID), "created_at", ts)
		pipe.HSet(ctx, metaKey(userID, chatID), "updated_at", ts)
		pipe.RPush(ctx, turnsKey(userID, chatID), encoded...)
		pipe.ZAdd(ctx, chatsKey(userID), redis.Z{Score: float64(now.UnixMilli()), Member: chatID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("append turns: %w", err)
	}
	return nil
}

func (s *Redis) ListChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	if err := validIDs(userID); err != nil {
		return nil, err
	}
	ids, err := s.rdb.ZRevRange(ctx, chatsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	out := make([]ChatSummary, 0, len(ids))
	for _, id := range ids {
		meta, n, err := s.summary(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			continue
		}
		meta.Turns = int(n)
		out = append(out, *meta)
	}
	return out, nil
}

func (s *Redis) GetChat(ctx context.Context, userID, chatID string) (*Chat, error) {
	if err := validIDs(userID, chatID); err != nil {
		return nil, err
	}
	meta, _, err := s.summary(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrNotFound
	}

	raw, err := s.rdb.LRange(ctx, turnsKey(userID, chatID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	c := &Chat{ChatSummary: *meta, UserID: userID, Turns: make([]Turn, 0, len(raw))}
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		c.Turns = append(c.Turns, t)
	}
	c.ChatSummary.Turns = len(c.Turns)
	return c, nil
}

// summary reads the chat hash and turn count. A missing chat returns nil.
func (s *Redis) summary(ctx context.Context, userID, chatID string) (*ChatSummary, int64, error) {
	var (
		metaCmd *redis.MapStringStringCmd
		lenCmd  *redis.IntCmd
	)
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		metaCmd = pipe.HGetAll(ctx, metaKey(userID, chatID))
		lenCmd = pipe.LLen(ctx, turnsKey(userID, chatID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("get chat: %w", err)
	}
	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, 0, nil
	}
	return &ChatSummary{
		ID:        chatID,
		Title:     meta["title"],
		CreatedAt: fromMillis(meta["created_at"]),
		UpdatedAt: fromMillis(meta["updated_at"]),
	}, lenCmd.Val(), nil
}

func fromMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (s *Redis) Close() error { return s.rdb.Close() }
