package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
)

func TestEstimateText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty is at least one", "", 1},
		{"short is at least one", "abc", 1},
		{"exact multiple", "abcdefgh", 2},
		{"rounds down", strings.Repeat("x", 4001), 1000},
		{"counts runes not bytes", strings.Repeat("é", 8), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateText(tt.text))
		})
	}
}

func TestEstimateMessages_SumsPerMessage(t *testing.T) {
	seq := chat.NewSequence(
		chat.System(strings.Repeat("s", 40)),
		chat.User(""),
		chat.User(strings.Repeat("u", 8)),
	)
	assert.Equal(t, 10+1+2, EstimateMessages(Heuristic{}, seq))
	assert.Equal(t, 13, EstimateMessages(nil, seq))
}

func TestEstimateMessages_Monotonic(t *testing.T) {
	seq := chat.NewSequence(chat.User("hello there"))
	before := EstimateMessages(Heuristic{}, seq)
	after := EstimateMessages(Heuristic{}, seq.Append(chat.Assistant(strings.Repeat("a", 100))))
	assert.Greater(t, after, before)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, "abc", Clamp("abc", 10))
	assert.Equal(t, "abcdefgh", Clamp("abcdefghijkl", 2))
	assert.Equal(t, "", Clamp("abc", 0))
	assert.Equal(t, "éééé", Clamp("éééééé", 1))
}

func TestNew_UnknownFallsBackToHeuristic(t *testing.T) {
	_, ok := New("nonsense").(Heuristic)
	assert.True(t, ok)
}
