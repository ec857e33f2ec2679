// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// The orchestration thresholds are heuristics; every one of them can be
// overridden from the orchestration section of the config file.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when exact counts aren't available.
const TokenEstimateRatio = 4

// Token estimator names accepted by orchestration.token_estimator.
const (
	EstimatorHeuristic = "heuristic"
	EstimatorTiktoken  = "tiktoken"
)

// DefaultTiktokenEncoding is the BPE encoding used by the tiktoken estimator.
const DefaultTiktokenEncoding = "cl100k_base"

// =============================================================================
// HISTORY
// =============================================================================

// DefaultMaxHistoryPairs is the sliding window size in exchanges (2 messages each).
const DefaultMaxHistoryPairs = 8

// FollowUpMaxChars is the longest question still treated as a vague follow-up.
const FollowUpMaxChars = 40

// DefaultFileHistoryTurns is how many history turns the file path sees as context.
const DefaultFileHistoryTurns = 16

// =============================================================================
// LOW-COST ELABORATION
// =============================================================================

// DefaultELMThreshold is the estimated prompt size (tokens) at which the
// compress-then-answer pipeline takes over from a single direct call.
const DefaultELMThreshold = 500

// =============================================================================
// FILE INGESTION
// =============================================================================

// DefaultTextThreshold: text files estimated above this are chunked and compressed.
const DefaultTextThreshold = 1000

// DefaultMaxDirectInputTokens caps raw text sent without compression.
const DefaultMaxDirectInputTokens = 2000

// DefaultChunkChars and DefaultChunkOverlap size the compression chunks.
const (
	DefaultChunkChars   = 4000
	DefaultChunkOverlap = 400
)

// Note budgets handed to the cheap model (tokens).
const (
	DefaultChunkNoteTokens  = 120
	DefaultMergeNoteTokens  = 800
	DefaultRowSummaryTokens = 150
)

// DefaultMaxTableRows caps rows loaded from a single data file.
const DefaultMaxTableRows = 200000

// DefaultProfileColumns is how many columns get quick stats in a table profile.
const DefaultProfileColumns = 25

// DefaultProfileSamples is the number of sample values per profiled column.
const DefaultProfileSamples = 3

// SQL result shaping.
const (
	DefaultMaxResultRows       = 200
	DefaultMaxResultColumns    = 12
	DefaultRowSampleForSummary = 60
)

// =============================================================================
// MODELS AND STYLE
// =============================================================================

// DefaultModelKey is the logical model used when a request names none.
const DefaultModelKey = "grok"

// Interaction styles for file answers.
const (
	StyleSimple     = "simple"
	StyleStructured = "structured"
)

// DefaultStyle is the interaction style used when a request names none.
const DefaultStyle = StyleSimple

// DefaultCatalogRefreshInterval is how long a cached catalog entry stays fresh.
const DefaultCatalogRefreshInterval = 72 * time.Hour

// DefaultCatalogMaxVersions caps versions returned per logical key.
const DefaultCatalogMaxVersions = 5

// =============================================================================
// STREAMING
// =============================================================================

// DefaultStreamWords is the number of whitespace-delimited tokens per delta event.
const DefaultStreamWords = 4

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultServerPort is the port the gateway listens on.
const DefaultServerPort = 8080

// DefaultServerReadTimeout for HTTP server.
const DefaultServerReadTimeout = 60 * time.Second

// DefaultServerWriteTimeout for HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultProviderTimeout bounds a single provider HTTP call.
const DefaultProviderTimeout = 120 * time.Second

// MaxRequestBodySize is the maximum allowed request body (50MB).
const MaxRequestBodySize = 50 * 1024 * 1024

// MaxMultipartMemory is how much of a multipart upload is held in memory.
const MaxMultipartMemory = 32 * 1024 * 1024

// MaxResponseSize is the maximum allowed upstream response body (50MB).
const MaxResponseSize = 50 * 1024 * 1024

// MaxErrorBodyLogLen limits error response body in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// =============================================================================
// STORE
// =============================================================================

// Store drivers accepted by store.driver.
const (
	StoreNone   = "none"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// =============================================================================
// COST CONTROL
// =============================================================================

// DefaultCostSessionTTL is how long cost sessions are tracked.
const DefaultCostSessionTTL = 24 * time.Hour
