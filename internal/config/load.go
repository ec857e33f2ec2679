// Package config - load.go reads the YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// providerKeyEnv lists the environment variables consulted, in order, when a
// provider has no api_key in the file.
var providerKeyEnv = map[string][]string{
	"groq":      {"GROQ_API_KEY"},
	"openai":    {"OPENAI_API_KEY", "GPT_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"cohere":    {"COHERE_API_KEY"},
	"ollama":    {},
	"bedrock":   {},
}

// Load reads .env (if present), then the YAML file at path, expanding ${VAR}
// references. An empty path yields the defaults plus environment keys.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("config: .env not loaded")
	}

	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Parse(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnvKeys()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse expands environment references in raw and decodes it into cfg.
func Parse(raw []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(raw))
	return yaml.Unmarshal([]byte(expanded), cfg)
}

func (c *Config) applyEnvKeys() {
	for name, vars := range providerKeyEnv {
		p := c.Providers[name]
		if p.APIKey != "" {
			continue
		}
		for _, v := range vars {
			if key := strings.TrimSpace(os.Getenv(v)); key != "" {
				p.APIKey = key
				break
			}
		}
		if name == "bedrock" && p.Region == "" {
			p.Region = os.Getenv("AWS_REGION")
		}
		if p != (ProviderConfig{}) {
			c.Providers[name] = p
		}
	}
}
