package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims surrounding space, drops invalid UTF-8 and caps the
// result at maxLen bytes without splitting a rune. maxLen <= 0 disables the cap.
func SanitizeString(input string, maxLen int) string {
	clean := strings.TrimSpace(strings.ToValidUTF8(input, ""))
	if maxLen <= 0 || len(clean) <= maxLen {
		return clean
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return strings.TrimSpace(clean[:cut])
}
