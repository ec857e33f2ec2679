// Package tokens provides the cheap token estimates used to gate compression.
//
// DESIGN: The default estimator is the provider-agnostic heuristic
// max(1, runes/4). It does not try to match any real tokenizer; it only has to
// be consistent and monotonic so thresholds behave predictably. A tiktoken
// backed estimator can be selected in config for closer counts.
package tokens

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// Estimator counts tokens in a piece of text.
type Estimator interface {
	Estimate(text string) int
}

// Heuristic is the chars/4 estimator.
type Heuristic struct{}

// Estimate returns max(1, runes/4).
func (Heuristic) Estimate(text string) int {
	return EstimateText(text)
}

// EstimateText returns max(1, runes/4).
func EstimateText(text string) int {
	n := utf8.RuneCountInString(text) / config.TokenEstimateRatio
	if n < 1 {
		return 1
	}
	return n
}

// EstimateMessages sums per-message estimates across a sequence.
func EstimateMessages(e Estimator, seq chat.Sequence) int {
	if e == nil {
		e = Heuristic{}
	}
	total := 0
	for i := 0; i < seq.Len(); i++ {
		total += e.Estimate(seq.At(i).Content)
	}
	return total
}

// Clamp cuts text to maxTokens*4 runes.
func Clamp(text string, maxTokens int) string {
	maxChars := maxTokens * config.TokenEstimateRatio
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}

// =============================================================================
// TIKTOKEN
// =============================================================================

// Tiktoken counts with a BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding (e.g. "cl100k_base").
func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{enc: enc}, nil
}

// Estimate returns the encoded token count, at least 1.
func (t *Tiktoken) Estimate(text string) int {
	n := len(t.enc.Encode(text, nil, nil))
	if n < 1 {
		return 1
	}
	return n
}

// New returns the estimator selected by name. Unknown names and tiktoken load
// failures fall back to the heuristic.
func New(name string) Estimator {
	switch name {
	case config.EstimatorTiktoken:
		tk, err := NewTiktoken(config.DefaultTiktokenEncoding)
		if err != nil {
			log.Warn().Err(err).Msg("tokens: tiktoken unavailable, using heuristic")
			return Heuristic{}
		}
		return tk
	default:
		return Heuristic{}
	}
}
