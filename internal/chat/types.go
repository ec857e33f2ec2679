// Package chat defines the role-tagged message types shared by the
// orchestration packages.
//
// DESIGN: Sequence is immutable. Every operation that "adds" a message returns
// a new Sequence backed by a fresh slice, so stages of the pipeline can hand
// sequences to each other without worrying about aliasing.
package chat

import (
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single role-tagged turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// RawTurn is a history entry as received from a client. Role may be anything.
type RawTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// SEQUENCE
// =============================================================================

// Sequence is an ordered, immutable list of messages.
type Sequence struct {
	msgs []Message
}

// NewSequence copies msgs into a new Sequence.
func NewSequence(msgs ...Message) Sequence {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return Sequence{msgs: out}
}

// Append returns a new Sequence with msgs added at the end.
func (s Sequence) Append(msgs ...Message) Sequence {
	out := make([]Message, 0, len(s.msgs)+len(msgs))
	out = append(out, s.msgs...)
	out = append(out, msgs...)
	return Sequence{msgs: out}
}

// Len returns the number of messages.
func (s Sequence) Len() int { return len(s.msgs) }

// At returns the i-th message.
func (s Sequence) At(i int) Message { return s.msgs[i] }

// First returns the first message, if any.
func (s Sequence) First() (Message, bool) {
	if len(s.msgs) == 0 {
		return Message{}, false
	}
	return s.msgs[0], true
}

// Last returns the last message, if any.
func (s Sequence) Last() (Message, bool) {
	if len(s.msgs) == 0 {
		return Message{}, false
	}
	return s.msgs[len(s.msgs)-1], true
}

// Messages returns a copy of the underlying messages.
func (s Sequence) Messages() []Message {
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// FlattenTranscript renders the sequence as "ROLE: content" lines. Used when a
// whole conversation is handed to a compression model as one text blob.
func (s Sequence) FlattenTranscript() string {
	var b strings.Builder
	for i, m := range s.msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", strings.ToUpper(string(m.Role)), m.Content)
	}
	return b.String()
}

// FlattenPrompt renders the sequence as "role: content" lines, the compact
// single-prompt form accepted by every provider.
func (s Sequence) FlattenPrompt() string {
	var b strings.Builder
	for i, m := range s.msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	return b.String()
}
