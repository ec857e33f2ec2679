package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gaia-chat/gaia-gateway/internal/catalog"
	"github.com/gaia-chat/gaia-gateway/internal/config"
)

func TestQuestionFrom(t *testing.T) {
	q, err := questionFrom([]string{"What", "is", "2+2?"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?", q)

	q, err = questionFrom(nil, strings.NewReader("  from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", q)
}

func TestReadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,amount\na,1\n"), 0o600))

	f, err := readLocalFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", f.Name)
	assert.True(t, f.IsTabular())

	_, err = readLocalFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogging(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	setupLogging(config.LoggingConfig{Level: "loud", Format: "console"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestModelsCommand(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GAIA_CONFIG", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"models", "--keys", "grok", "--log-level", "error"})
	require.NoError(t, root.Execute())

	var got map[string]catalog.Entry
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Contains(t, got, "grok")
	assert.Equal(t, "groq", got["grok"].Provider)
	assert.NotEmpty(t, got["grok"].Versions)
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "ask", "models"})
}
