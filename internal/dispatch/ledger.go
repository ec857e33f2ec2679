package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/gaia-chat/gaia-gateway/internal/providers"
)

// CallRecord is one provider call made while serving a request.
type CallRecord struct {
	Provider providers.Provider
	Model    string
	OK       bool
	Latency  time.Duration
	Usage    providers.Usage
}

// Ledger collects every call made under a context. The orchestrator
// attaches one per request to price the request afterwards.
type Ledger struct {
	mu    sync.Mutex
	calls []CallRecord
}

type ledgerKey struct{}

// WithLedger returns a context carrying a fresh ledger.
func WithLedger(ctx context.Context) (context.Context, *Ledger) {
	l := &Ledger{}
	return context.WithValue(ctx, ledgerKey{}, l), l
}

// LedgerFrom returns the ledger attached to ctx, or nil.
func LedgerFrom(ctx context.Context) *Ledger {
	l, _ := ctx.Value(ledgerKey{}).(*Ledger)
	return l
}

func (l *Ledger) add(r CallRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, r)
}

// Calls returns a copy of the recorded calls in order.
func (l *Ledger) Calls() []CallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]CallRecord(nil), l.calls...)
}
