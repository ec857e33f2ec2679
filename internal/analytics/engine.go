// Package analytics - engine.go is the embedded SQL engine for uploaded tables.
//
// DESIGN: One in-memory SQLite database per file-ingestion call. Opening,
// loading and querying happen on a single connection (SetMaxOpenConns(1)),
// because every new connection to ":memory:" would see an empty database.
// The engine only runs read statements (SELECT or WITH); tables are created
// through Load.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Column types inferred for uploaded tables.
const (
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeBoolean = "BOOLEAN"
	TypeText    = "TEXT"
)

// Column is a typed column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is a typed table ready to load. Row values are nil (NULL), int64,
// float64, bool or string.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Result is a query result. Truncated reports that more rows existed than
// the requested limit.
type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// Engine wraps an in-memory SQLite database.
type Engine struct {
	db *sql.DB
}

// Open creates a fresh in-memory database.
func Open(ctx context.Context) (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Engine{db: db}, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Load creates t.Name and inserts every row in one transaction.
func (e *Engine) Load(ctx context.Context, t Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}

	defs := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = QuoteIdent(c.Name) + " " + c.Type
		marks[i] = "?"
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(t.Name), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(t.Name), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug().Str("table", t.Name).Int("rows", len(t.Rows)).Int("columns", len(t.Columns)).Msg("analytics: table loaded")
	return nil
}

// Query runs a read statement and returns at most limit rows. A
// non-positive limit returns every row.
func (e *Engine) Query(ctx context.Context, query string, limit int) (*Result, error) {
	if !IsReadOnly(query) {
		return nil, fmt.Errorf("only SELECT or WITH statements are allowed")
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		if limit > 0 && len(res.Rows) == limit {
			res.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// IsReadOnly reports whether query starts with SELECT or WITH and holds a
// single statement. A semicolon inside a quoted literal, a quoted identifier
// or a comment does not end the statement.
func IsReadOnly(query string) bool {
	q := strings.TrimSpace(query)
	if end := statementEnd(q); end >= 0 {
		if strings.TrimSpace(q[end+1:]) != "" {
			return false
		}
		q = q[:end]
	}
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return true
	}
	return false
}

// QuoteIdent quotes an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// statementEnd returns the byte offset of the first top-level semicolon in q,
// or -1. Quoted spans ('...', "...", `...`, [...]) and comments are skipped.
func statementEnd(q string) int {
	for i := 0; i < len(q); i++ {
		switch c := q[i]; c {
		case ';':
			return i
		case '\'', '"', '`':
			j := strings.IndexByte(q[i+1:], c)
			if j < 0 {
				return -1
			}
			i += j + 1
		case '[':
			j := strings.IndexByte(q[i+1:], ']')
			if j < 0 {
				return -1
			}
			i += j + 1
		case '-':
			if strings.HasPrefix(q[i:], "--") {
				j := strings.IndexByte(q[i:], '\n')
				if j < 0 {
					return -1
				}
				i += j
			}
		case '/':
			if strings.HasPrefix(q[i:], "/*") {
				j := strings.Index(q[i+2:], "*/")
				if j < 0 {
					return -1
				}
				i += j + 3
			}
		}
	}
	return -1
}
