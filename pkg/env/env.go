// Package env reads process environment variables with fallbacks.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := First(key); val != "" {
		return val
	}
	return fallback
}

// First returns the first non-blank value among keys, trimmed.
func First(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}
