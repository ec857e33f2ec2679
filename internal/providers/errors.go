package providers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gaia-chat/gaia-gateway/external"
)

// ErrorKind classifies a failed provider call.
type ErrorKind string

const (
	KindAuth            ErrorKind = "auth"
	KindNetwork         ErrorKind = "network"
	KindRateLimit       ErrorKind = "rate_limit"
	KindUpstream        ErrorKind = "upstream"
	KindBadResponse     ErrorKind = "bad_response"
	KindNotConfigured   ErrorKind = "not_configured"
	KindUnknownProvider ErrorKind = "unknown_provider"
)

// CallError is the only error type a Generator returns.
type CallError struct {
	Kind     ErrorKind
	Provider Provider
	Model    string
	Err      error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" when err is not a *CallError.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// classify wraps a raw call failure in a *CallError.
func classify(p Provider, model string, err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	// transport failures, timeouts and cancellation are all network
	kind := KindNetwork
	var httpErr *external.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = KindAuth
		case http.StatusTooManyRequests:
			kind = KindRateLimit
		default:
			kind = KindUpstream
		}
	}
	return &CallError{Kind: kind, Provider: p, Model: model, Err: err}
}
