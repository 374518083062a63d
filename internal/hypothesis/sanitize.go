package hypothesis

import (
	"regexp"
	"strings"
)

// secretPatterns match token shapes that commonly leak into telemetry
// payloads. Matches are replaced with an explicit marker rather than dropped,
// so a reviewer can see that something was there.
var secretPatterns = []*regexp.Regexp{
	// AWS access key IDs
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	// Bearer tokens and Authorization headers
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{16,}=*`),
	// key=value style credentials
	regexp.MustCompile(`(?i)\b(password|passwd|secret|api[_-]?key|token)\s*[=:]\s*\S+`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	// Long opaque base64/hex blobs
	regexp.MustCompile(`\b[A-Za-z0-9+/]{40,}={0,2}\b`),
}

const secretMarker = "[FLAGGED-SECRET]"

// sanitizeText strips control characters and flags suspected secret-like
// tokens. Returns the sanitized text and whether any secret was flagged.
// The audit payload may be logged or transmitted further, so control bytes
// must never pass through, and secrets must be marked, not silently kept or
// silently removed.
func sanitizeText(s string) (string, bool) {
	s = stripControl(s)

	flagged := false
	for _, re := range secretPatterns {
		if re.MatchString(s) {
			flagged = true
			s = re.ReplaceAllString(s, secretMarker)
		}
	}
	return s, flagged
}

// stripControl removes control characters except tab and newline.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
