package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_AppendDoesNotAlias(t *testing.T) {
	base := NewSequence(System("sys"))
	a := base.Append(User("a"))
	b := base.Append(User("b"))

	require.Equal(t, 1, base.Len())
	require.Equal(t, 2, a.Len())
	require.Equal(t, 2, b.Len())
	assert.Equal(t, "a", a.At(1).Content)
	assert.Equal(t, "b", b.At(1).Content)
}

func TestSequence_MessagesReturnsCopy(t *testing.T) {
	seq := NewSequence(User("hello"))
	msgs := seq.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "hello", seq.At(0).Content)
}

func TestSequence_Flatten(t *testing.T) {
	seq := NewSequence(System("be brief"), User("hi"), Assistant("hello"))

	assert.Equal(t, "SYSTEM: be brief\nUSER: hi\nASSISTANT: hello", seq.FlattenTranscript())
	assert.Equal(t, "system: be brief\nuser: hi\nassistant: hello", seq.FlattenPrompt())
}

func TestSequence_FirstLastEmpty(t *testing.T) {
	var seq Sequence
	_, ok := seq.First()
	assert.False(t, ok)
	_, ok = seq.Last()
	assert.False(t, ok)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleSystem.Valid())
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("ai").Valid())
}
