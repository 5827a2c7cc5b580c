package stream

import "strings"

// Reply text arrives under different nested keys depending on the upstream.
// The extraction rules below are evaluated in priority order; the first rule
// producing non-empty text wins. This is the single place those shapes are
// enumerated.
var textRules = [][]string{
	{"message", "text"},
	{"message", "message"},
	{"message", "content"},
	{"text"},
}

// Payload types that represent non-spoken status updates.
var progressTypes = map[string]bool{
	"ProgressIndicator": true,
	"progress":          true,
}

// Payload types that terminate the turn.
var endTypes = map[string]bool{
	"EndOfTurn":    true,
	"EndOfSession": true,
	"end":          true,
}

func extractText(payload map[string]any) string {
	for _, path := range textRules {
		if v := lookupString(payload, path); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// payloadType reads the event type from message.type, falling back to a
// top-level type field.
func payloadType(payload map[string]any) string {
	if v := lookupString(payload, []string{"message", "type"}); v != "" {
		return v
	}
	return lookupString(payload, []string{"type"})
}

func lookupString(payload map[string]any, path []string) string {
	var cur any = payload
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
