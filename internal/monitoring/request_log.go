// Package monitoring - request_log.go records answered requests to JSONL.
//
// DESIGN: One JSON object per line, appended right after each request so the
// file can be tailed. An empty path disables the file; the in-memory ring of
// recent events is always kept for /stats.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const maxRecentEvents = 100

// RequestLog handles request event recording.
type RequestLog struct {
	path   string
	mu     sync.Mutex
	count  int
	recent []RequestEvent
}

// NewRequestLog creates a request log writing to path (may be empty).
func NewRequestLog(path string) (*RequestLog, error) {
	l := &RequestLog{path: path, recent: make([]RequestEvent, 0, maxRecentEvents)}
	if path == "" {
		return l, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	_ = f.Close()
	return l, nil
}

// Record appends event to the ring and, when configured, to the file.
func (l *RequestLog) Record(event RequestEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if len(l.recent) >= maxRecentEvents {
		copy(l.recent, l.recent[1:])
		l.recent[len(l.recent)-1] = event
	} else {
		l.recent = append(l.recent, event)
	}

	if l.path == "" {
		return
	}
	if err := appendJSONL(l.path, event); err != nil {
		log.Warn().Err(err).Str("path", l.path).Msg("monitoring: request log write failed")
	}
}

// Recent returns the most recent n events, newest first.
func (l *RequestLog) Recent(n int) []RequestEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.recent) == 0 {
		return nil
	}
	n = min(n, len(l.recent))
	out := make([]RequestEvent, n)
	for i := 0; i < n; i++ {
		out[i] = l.recent[len(l.recent)-1-i]
	}
	return out
}

// Count returns how many events were recorded.
func (l *RequestLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func appendJSONL(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}
