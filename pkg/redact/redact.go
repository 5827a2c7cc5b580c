// Package redact scrubs obvious PII from transcript text before it is
// logged or written to timeline artifacts. Transcribed speech routinely
// contains dictated addresses and numbers, so redaction runs on everything
// the user said and everything spoken back.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Spoken digit strings longer than a phone number are usually card or
// account numbers; they get their own marker so artifacts stay debuggable.
var rules = []rule{
	{regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b\d[\d\s\-]{16,}\d\b`), "[REDACTED_NUMBER]"},
	{regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`), "[REDACTED_PHONE]"},
}

// SetEnabled toggles PII redaction globally.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text redacts emails, long digit strings, and phone numbers when enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := in
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.replacement)
	}
	return out
}
