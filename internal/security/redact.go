package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Mask replaces credential-shaped content and sensitive fields.
	Mask = "***"

	// maxLoggedString is the longest string logged verbatim; anything longer
	// is summarized so embedded secrets are not fully exposed.
	maxLoggedString = 200
)

// credentialPatterns catch key material by shape. Masks and truncation
// markers must never re-match, so Sanitize stays idempotent.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{8,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{8,}=*`),
	regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?key)\s*[:=]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),
}

// sensitiveKeyParts flag whole fields by name regardless of value shape.
var sensitiveKeyParts = []string{"key", "token", "secret", "password"}

// Sanitize returns a deep copy of v safe for logging: credential-shaped
// substrings masked, long strings summarized, fields with sensitive names
// masked wholesale, nested maps and slices handled recursively.
//
// Log path only. Never call it on data returned to the caller or sent to
// the backend model.
func Sanitize(v any) any {
	switch val := v.(type) {
	case string:
		return sanitizeString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if isSensitiveKey(k) {
				out[k] = Mask
				continue
			}
			out[k] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	default:
		return v
	}
}

func sanitizeString(s string) string {
	for _, p := range credentialPatterns {
		s = p.ReplaceAllString(s, Mask)
	}
	if len(s) > maxLoggedString {
		head := runeSafePrefix(s, 40)
		tail := runeSafeSuffix(s, 20)
		return fmt.Sprintf("%s...[%d chars]...%s", head, len(s), tail)
	}
	return s
}

// runeSafePrefix returns at most n leading bytes without splitting a rune.
func runeSafePrefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// runeSafeSuffix returns at most n trailing bytes without splitting a rune.
func runeSafeSuffix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

func isSensitiveKey(k string) bool {
	lower := strings.ToLower(k)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}
