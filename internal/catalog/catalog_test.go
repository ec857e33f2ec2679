package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsAllKeys(t *testing.T) {
	entries, err := Default()
	require.NoError(t, err)

	for _, k := range []string{"gpt-5", "gemini-pro", "grok", "claude-sonnet", "cohere-plus"} {
		e, ok := entries[k]
		require.True(t, ok, k)
		assert.Len(t, e.Versions, 3)
		assert.Equal(t, TierBest, e.DefaultTier)
		for _, v := range e.Versions {
			assert.True(t, v.Available)
			assert.NotEmpty(t, v.Label)
		}
	}

	cheap, ok := entries["grok"].VersionByTier(TierCheap)
	require.True(t, ok)
	assert.Equal(t, "llama-3.1-8b-instant", cheap.ID)
	assert.Equal(t, "groq", entries["grok"].Provider)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"two versions", `
x:
  provider: openai
  versions:
    - {tier: best, id: a}
    - {tier: cheap, id: b}
`},
		{"duplicate tier", `
x:
  provider: openai
  versions:
    - {tier: best, id: a}
    - {tier: best, id: b}
    - {tier: cheap, id: c}
`},
		{"unknown tier", `
x:
  provider: openai
  versions:
    - {tier: best, id: a}
    - {tier: medium, id: b}
    - {tier: cheap, id: c}
`},
		{"missing provider", `
x:
  versions:
    - {tier: best, id: a}
    - {tier: good, id: b}
    - {tier: cheap, id: c}
`},
		{"missing id", `
x:
  provider: openai
  versions:
    - {tier: best, id: a}
    - {tier: good, id: ""}
    - {tier: cheap, id: c}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yml))
			assert.Error(t, err)
		})
	}
}

func TestParse_FillsLabelsAndDefaultTier(t *testing.T) {
	entries, err := Parse([]byte(`
Mine:
  provider: OpenAI
  versions:
    - {tier: best, id: gpt-5.1-2025-11-13}
    - {tier: good, id: llama-3.3-70b-versatile}
    - {tier: cheap, id: command-light}
`))
	require.NoError(t, err)

	e := entries["mine"]
	assert.Equal(t, "openai", e.Provider)
	assert.Equal(t, TierBest, e.DefaultTier)
	assert.Equal(t, "5.1", e.Versions[0].Label)
	assert.Equal(t, "llama 3.3 70b versatile", e.Versions[1].Label)
	assert.Equal(t, "command-light", e.Versions[2].Label)
}

func TestAutoLabel(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"gpt-5.2-pro-2025-12-11", "5.2"},
		{"models/gemini-2.5-pro", "2.5"},
		{"mixtral-8x7b-32768", "mixtral 8x7b 32768"},
		{"claude-3-haiku-20240307", "claude-3-haiku-20240307"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, AutoLabel(tt.id))
		})
	}
}
