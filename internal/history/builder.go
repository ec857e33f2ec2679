// Package history - builder.go assembles the prompt sequence for a question.
//
// DESIGN: Build turns raw, possibly malformed client history into a
// chat.Sequence that always starts with exactly one system message and ends
// with the current question:
//
//  1. Normalize:  trim, drop empties, coerce unknown roles
//  2. Hoist:      standing system entries go in front of the default instruction
//  3. Select:     vague follow-up keeps only the last assistant answer,
//     anything else keeps a sliding window of the last MaxPairs exchanges
//  4. Append:     the current question as the final user message
package history

import (
	"strings"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// DefaultInstruction is the system text every conversation starts with.
const DefaultInstruction = "Answer using the most recent context. If the user asks to explain/elaborate/clarify " +
	"in a short prompt, treat it as a follow-up to the immediately previous assistant answer. " +
	"When you include any code, ALWAYS wrap it in triple backticks with a language tag " +
	"(e.g., ```python, ```javascript, ```html, ```sql, ```json, ```yaml, ```bash)."

// followUpCues are matched as substrings of the lowercased question.
var followUpCues = []string{"explain", "elaborate", "more", "clarify", "details", "expand", "why"}

// Builder assembles prompt sequences.
type Builder struct {
	MaxPairs    int
	Instruction string
}

// NewBuilder creates a builder with the given window size in exchanges.
// Non-positive values use the default of 8.
func NewBuilder(maxPairs int) *Builder {
	if maxPairs <= 0 {
		maxPairs = config.DefaultMaxHistoryPairs
	}
	return &Builder{MaxPairs: maxPairs, Instruction: DefaultInstruction}
}

// Build assembles the sequence for question given raw history.
func (b *Builder) Build(question string, raw []chat.RawTurn) chat.Sequence {
	turns := Normalize(raw)

	system, rest := splitSystem(turns)
	instruction := b.Instruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	if len(system) > 0 {
		instruction = strings.TrimSpace(strings.Join(system, "\n\n") + "\n\n" + instruction)
	}

	seq := chat.NewSequence(chat.System(instruction))

	if IsVagueFollowUp(question) {
		if last, ok := lastAssistant(rest); ok {
			seq = seq.Append(last)
		}
	} else {
		seq = seq.Append(window(rest, b.MaxPairs*2)...)
	}

	return seq.Append(chat.User(question))
}

// Normalize trims content, drops empty turns and coerces roles.
func Normalize(raw []chat.RawTurn) []chat.Message {
	out := make([]chat.Message, 0, len(raw))
	for _, t := range raw {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		out = append(out, chat.Message{Role: CoerceRole(t.Role), Content: content})
	}
	return out
}

// CoerceRole maps a client-supplied role onto system, user or assistant.
func CoerceRole(role string) chat.Role {
	r := chat.Role(strings.ToLower(strings.TrimSpace(role)))
	if r.Valid() {
		return r
	}
	switch r {
	case "ai", "bot", "model":
		return chat.RoleAssistant
	}
	return chat.RoleUser
}

// IsVagueFollowUp reports whether question is a short follow-up cue such as
// "explain that" or "why?".
func IsVagueFollowUp(question string) bool {
	s := strings.ToLower(strings.TrimSpace(question))
	if len([]rune(s)) > config.FollowUpMaxChars {
		return false
	}
	for _, cue := range followUpCues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

// Recent returns the last n non-system turns of raw history, normalized.
// The file pipeline uses it as a compact context block.
func Recent(raw []chat.RawTurn, n int) []chat.Message {
	_, rest := splitSystem(Normalize(raw))
	return window(rest, n)
}

// StandingInstructions returns the joined system entries of raw history.
func StandingInstructions(raw []chat.RawTurn) string {
	system, _ := splitSystem(Normalize(raw))
	return strings.Join(system, "\n\n")
}

// ===== HELPERS =====

func splitSystem(turns []chat.Message) ([]string, []chat.Message) {
	var system []string
	rest := make([]chat.Message, 0, len(turns))
	for _, m := range turns {
		if m.Role == chat.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

func lastAssistant(turns []chat.Message) (chat.Message, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == chat.RoleAssistant {
			return turns[i], true
		}
	}
	return chat.Message{}, false
}

func window(turns []chat.Message, n int) []chat.Message {
	if n <= 0 {
		return nil
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}
