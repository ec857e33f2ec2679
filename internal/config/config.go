// Package config - config.go defines the gateway configuration tree.
//
// DESIGN: One struct per YAML section. Zero values are filled from
// defaults.go by applyDefaults, so a config file only needs to name
// what it changes. Validate runs after defaults and rejects combinations
// that would make the orchestration pipeline misbehave.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig              `yaml:"server"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
	Catalog       CatalogConfig             `yaml:"catalog"`
	Orchestration OrchestrationConfig       `yaml:"orchestration"`
	Store         StoreConfig               `yaml:"store"`
	Telemetry     TelemetryConfig           `yaml:"telemetry"`
	Monitoring    MonitoringConfig          `yaml:"monitoring"`
	CostControl   CostControlConfig         `yaml:"cost_control"`
	Logging       LoggingConfig             `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// ProviderConfig holds per-provider credentials and endpoint overrides.
type ProviderConfig struct {
	APIKey   string        `yaml:"api_key"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Region   string        `yaml:"region"` // bedrock only
}

// CatalogConfig controls the model version catalog.
type CatalogConfig struct {
	File            string        `yaml:"file"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	WarmSchedule    string        `yaml:"warm_schedule"` // cron expression, empty disables
	MaxVersions     int           `yaml:"max_versions"`
}

// OrchestrationConfig holds the thresholds that steer each request.
type OrchestrationConfig struct {
	MaxHistoryPairs      int    `yaml:"max_history_pairs"`
	ELMThreshold         int    `yaml:"elm_threshold"`
	TextThreshold        int    `yaml:"text_threshold"`
	MaxDirectInputTokens int    `yaml:"max_direct_input_tokens"`
	ChunkChars           int    `yaml:"chunk_chars"`
	ChunkOverlap         int    `yaml:"chunk_overlap"`
	MaxResultRows        int    `yaml:"max_result_rows"`
	MaxResultColumns     int    `yaml:"max_result_columns"`
	RowSampleForSummary  int    `yaml:"row_sample_for_summary"`
	MaxTableRows         int    `yaml:"max_table_rows"`
	ProfileColumns       int    `yaml:"profile_columns"`
	FileHistoryTurns     int    `yaml:"file_history_turns"`
	StreamWords          int    `yaml:"stream_words"`
	TokenEstimator       string `yaml:"token_estimator"`
	DefaultModel         string `yaml:"default_model"`
	DefaultStyle         string `yaml:"default_style"`
}

// StoreConfig selects the chat persistence driver.
type StoreConfig struct {
	Driver        string `yaml:"driver"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// MonitoringConfig controls local request logging.
type MonitoringConfig struct {
	RequestLogPath string `yaml:"request_log_path"`
}

// CostControlConfig configures spend tracking. Caps of 0 mean unlimited.
type CostControlConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SessionCap float64 `yaml:"session_cap"`
	GlobalCap  float64 `yaml:"global_cap"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ===== PROVIDER ENDPOINTS =====

var defaultEndpoints = map[string]string{
	"groq":      "https://api.groq.com/openai/v1/chat/completions",
	"openai":    "https://api.openai.com/v1/chat/completions",
	"anthropic": "https://api.anthropic.com/v1/messages",
	"gemini":    "https://generativelanguage.googleapis.com/v1beta/models",
	"cohere":    "https://api.cohere.com/v2/chat",
	"ollama":    "http://localhost:11434/api/chat",
	"bedrock":   "",
}

// DefaultEndpoint returns the public endpoint for a provider name.
func DefaultEndpoint(provider string) string {
	return defaultEndpoints[strings.ToLower(provider)]
}

// Provider returns the settings for name with endpoint and timeout filled in.
func (c *Config) Provider(name string) ProviderConfig {
	p := c.Providers[strings.ToLower(name)]
	if p.Endpoint == "" {
		p.Endpoint = DefaultEndpoint(name)
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultProviderTimeout
	}
	return p
}

// ===== DEFAULTS AND VALIDATION =====

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Catalog.RefreshInterval == 0 {
		c.Catalog.RefreshInterval = DefaultCatalogRefreshInterval
	}
	if c.Catalog.MaxVersions == 0 {
		c.Catalog.MaxVersions = DefaultCatalogMaxVersions
	}

	o := &c.Orchestration
	setInt(&o.MaxHistoryPairs, DefaultMaxHistoryPairs)
	setInt(&o.ELMThreshold, DefaultELMThreshold)
	setInt(&o.TextThreshold, DefaultTextThreshold)
	setInt(&o.MaxDirectInputTokens, DefaultMaxDirectInputTokens)
	setInt(&o.ChunkChars, DefaultChunkChars)
	setInt(&o.ChunkOverlap, DefaultChunkOverlap)
	setInt(&o.MaxResultRows, DefaultMaxResultRows)
	setInt(&o.MaxResultColumns, DefaultMaxResultColumns)
	setInt(&o.RowSampleForSummary, DefaultRowSampleForSummary)
	setInt(&o.MaxTableRows, DefaultMaxTableRows)
	setInt(&o.ProfileColumns, DefaultProfileColumns)
	setInt(&o.FileHistoryTurns, DefaultFileHistoryTurns)
	setInt(&o.StreamWords, DefaultStreamWords)
	if o.TokenEstimator == "" {
		o.TokenEstimator = EstimatorHeuristic
	}
	if o.DefaultModel == "" {
		o.DefaultModel = DefaultModelKey
	}
	if o.DefaultStyle == "" {
		o.DefaultStyle = DefaultStyle
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreNone
	}
	if c.Store.Driver == StoreSQLite && c.Store.Path == "" {
		c.Store.Path = "gaia.db"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "gaia-gateway"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// Validate rejects nonsensical settings.
func (c *Config) Validate() error {
	o := c.Orchestration
	positives := []struct {
		name string
		v    int
	}{
		{"max_history_pairs", o.MaxHistoryPairs},
		{"elm_threshold", o.ELMThreshold},
		{"text_threshold", o.TextThreshold},
		{"max_direct_input_tokens", o.MaxDirectInputTokens},
		{"chunk_chars", o.ChunkChars},
		{"max_result_rows", o.MaxResultRows},
		{"max_result_columns", o.MaxResultColumns},
		{"row_sample_for_summary", o.RowSampleForSummary},
		{"max_table_rows", o.MaxTableRows},
		{"profile_columns", o.ProfileColumns},
		{"stream_words", o.StreamWords},
	}
	for _, p := range positives {
		if p.v <= 0 {
			return fmt.Errorf("orchestration.%s must be positive, got %d", p.name, p.v)
		}
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkChars {
		return fmt.Errorf("orchestration.chunk_overlap (%d) must be in [0, chunk_chars=%d)", o.ChunkOverlap, o.ChunkChars)
	}
	switch o.TokenEstimator {
	case EstimatorHeuristic, EstimatorTiktoken:
	default:
		return fmt.Errorf("orchestration.token_estimator: unknown estimator %q", o.TokenEstimator)
	}
	switch o.DefaultStyle {
	case StyleSimple, StyleStructured:
	default:
		return fmt.Errorf("orchestration.default_style: unknown style %q", o.DefaultStyle)
	}

	switch c.Store.Driver {
	case StoreNone, StoreSQLite:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.CostControl.SessionCap < 0 || c.CostControl.GlobalCap < 0 {
		return fmt.Errorf("cost_control caps must not be negative")
	}
	return nil
}
