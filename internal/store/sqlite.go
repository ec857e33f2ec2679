package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chats (
	user_id    TEXT NOT NULL,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_chats_updated ON chats(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS turns (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	chat_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_chat ON turns(user_id, chat_id, seq);
`

// tsLayout sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores chats in a single SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (and migrates) the database at path. The parent directory
// is created when missing.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) AppendTurns(ctx context.Context, userID, chatID string, turns ...Turn) error {
	if err := validIDs(userID, chatID); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}
	now := s.now().UTC()
	turns = stamp(turns, now)
	ts := now.Format(tsLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (user_id, id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET updated_at = excluded.updated_at`,
		userID, chatID, titleFrom(turns), ts, ts)
	if err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turns (user_id, chat_id, role, content, model, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare turn insert: %w", err)
	}
	defer stmt.Close()
	for _, t := range turns {
		if _, err := stmt.ExecContext(ctx, userID, chatID, t.Role, t.Content, t.Model, t.CreatedAt.UTC().Format(tsLayout)); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) ListChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	if err := validIDs(userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM turns t WHERE t.user_id = c.user_id AND t.chat_id = c.id)
		FROM chats c
		WHERE c.user_id = ?
		ORDER BY c.updated_at DESC, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	out := []ChatSummary{}
	for rows.Next() {
		var (
			cs               ChatSummary
			created, updated string
		)
		if err := rows.Scan(&cs.ID, &cs.Title, &created, &updated, &cs.Turns); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		cs.CreatedAt, _ = time.Parse(tsLayout, created)
		cs.UpdatedAt, _ = time.Parse(tsLayout, updated)
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *SQLite) GetChat(ctx context.Context, userID, chatID string) (*Chat, error) {
	if err := validIDs(userID, chatID); err != nil {
		return nil, err
	}

	c := &Chat{UserID: userID, Turns: []Turn{}}
	var created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chats WHERE user_id = ? AND id = ?`,
		userID, chatID).Scan(&c.ID, &c.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	c.CreatedAt, _ = time.Parse(tsLayout, created)
	c.UpdatedAt, _ = time.Parse(tsLayout, updated)

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, model, created_at FROM turns WHERE user_id = ? AND chat_id = ? ORDER BY seq`,
		userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t  Turn
			at string
		)
		if err := rows.Scan(&t.Role, &t.Content, &t.Model, &at); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt, _ = time.Parse(tsLayout, at)
		c.Turns = append(c.Turns, t)
	}
	c.ChatSummary.Turns = len(c.Turns)
	return c, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
