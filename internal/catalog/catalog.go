// Package catalog - catalog.go defines the model version catalog.
//
// DESIGN: The catalog maps a logical model key ("grok", "gpt-5") to a
// provider and exactly three concrete versions ranked best/good/cheap.
// The default catalog is embedded; a YAML file with the same shape can
// replace it at startup. Labels missing from the file are derived from the
// raw model id.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Tier ranks a version within its entry.
type Tier string

const (
	TierBest  Tier = "best"
	TierGood  Tier = "good"
	TierCheap Tier = "cheap"
)

// ParseTier returns the tier named by s (case-insensitive).
func ParseTier(s string) (Tier, bool) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierBest, TierGood, TierCheap:
		return t, true
	}
	return "", false
}

// Version is one concrete model id in an entry.
type Version struct {
	Tier      Tier   `json:"tier" yaml:"tier"`
	ID        string `json:"id" yaml:"id"`
	Label     string `json:"label" yaml:"label"`
	Available bool   `json:"available" yaml:"-"`
}

// Entry is the catalog record for one logical key.
type Entry struct {
	Key         string    `json:"-" yaml:"-"`
	Provider    string    `json:"provider" yaml:"provider"`
	DefaultTier Tier      `json:"default" yaml:"default"`
	Versions    []Version `json:"versions" yaml:"versions"`
	RefreshedAt time.Time `json:"refreshed_at,omitempty" yaml:"-"`
}

// VersionByTier returns the version with tier t.
func (e Entry) VersionByTier(t Tier) (Version, bool) {
	for _, v := range e.Versions {
		if v.Tier == t {
			return v, true
		}
	}
	return Version{}, false
}

func (e Entry) clone() Entry {
	out := e
	out.Versions = append([]Version(nil), e.Versions...)
	return out
}

// ===== LOADING =====

// Default returns the embedded catalog.
func Default() (map[string]Entry, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from path. An empty path returns the default.
func LoadFile(path string) (map[string]Entry, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (map[string]Entry, error) {
	var decoded map[string]Entry
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := make(map[string]Entry, len(decoded))
	for rawKey, e := range decoded {
		key := NormalizeKey(rawKey)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate key %q", key)
		}
		e.Key = key
		e.Provider = strings.ToLower(strings.TrimSpace(e.Provider))
		if e.Provider == "" {
			return nil, fmt.Errorf("catalog %q: provider is required", key)
		}
		if e.DefaultTier == "" {
			e.DefaultTier = TierBest
		}
		if _, ok := ParseTier(string(e.DefaultTier)); !ok {
			return nil, fmt.Errorf("catalog %q: unknown default tier %q", key, e.DefaultTier)
		}
		if err := validateVersions(key, e.Versions); err != nil {
			return nil, err
		}
		for i := range e.Versions {
			v := &e.Versions[i]
			v.ID = strings.TrimSpace(v.ID)
			v.Label = strings.TrimSpace(v.Label)
			if v.Label == "" {
				v.Label = AutoLabel(v.ID)
			}
			v.Available = true
		}
		out[key] = e
	}
	return out, nil
}

func validateVersions(key string, versions []Version) error {
	if len(versions) != 3 {
		return fmt.Errorf("catalog %q: expected 3 versions, got %d", key, len(versions))
	}
	seen := make(map[Tier]bool, 3)
	for _, v := range versions {
		t, ok := ParseTier(string(v.Tier))
		if !ok {
			return fmt.Errorf("catalog %q: unknown tier %q", key, v.Tier)
		}
		if seen[t] {
			return fmt.Errorf("catalog %q: tier %q listed twice", key, t)
		}
		seen[t] = true
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("catalog %q: tier %q has no id", key, t)
		}
	}
	return nil
}

// NormalizeKey lowercases and trims a logical key.
func NormalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// ===== LABELS =====

var (
	numberedFamily = regexp.MustCompile(`(?i)(?:gpt[-_]?|gemini[-_]?)(\d+(?:\.\d+)*)(?:[-_].*)?$`)
	openFamily     = regexp.MustCompile(`(?i)^(llama|mixtral)[-_]?(.*)$`)
)

// AutoLabel derives a display label from a raw provider model id:
// "gpt-5.1-2025-11-13" becomes "5.1", "llama-3.3-70b-versatile" becomes
// "llama 3.3 70b versatile". Other ids are returned without a "models/" prefix.
func AutoLabel(modelID string) string {
	s := strings.TrimSpace(modelID)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "models/", "")
	if m := numberedFamily.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := openFamily.FindStringSubmatch(s); m != nil {
		rest := strings.NewReplacer("-", " ", "_", " ").Replace(m[2])
		return strings.TrimSpace(strings.ToLower(m[1]) + " " + strings.TrimSpace(rest))
	}
	return s
}
