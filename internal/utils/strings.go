// Package utils provides small helpers shared across packages.
package utils

// MaskKey masks an API key for safe logging (first 8 and last 4 chars).
// Keys are never logged any other way.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
