package stream

import "strings"

// Accumulator reconciles incremental reply payloads against everything seen
// so far in one turn. Upstreams differ: some send true deltas, some re-send
// the full text spoken so far. The prefix heuristic below handles both
// without the caller knowing which pattern a given upstream uses.
type Accumulator struct {
	text string
}

// Reconcile returns the logically new portion of payload, or "" when the
// payload is redundant.
func (a *Accumulator) Reconcile(payload string) string {
	switch {
	case payload == "":
		return ""
	case a.text == "":
		a.text = payload
		return payload
	case strings.HasPrefix(payload, a.text) && len(payload) > len(a.text):
		// Full resend that extends what we have: only the suffix is new.
		delta := payload[len(a.text):]
		a.text = payload
		return delta
	case strings.HasPrefix(a.text, payload):
		// Already covered by accumulated text.
		return ""
	default:
		// Neither a prefix nor an extension: treat as genuinely new text.
		a.text += payload
		return payload
	}
}

// Text returns the full reconciled reply so far.
func (a *Accumulator) Text() string { return a.text }

// Splitter buffers the unsplit tail of reply text and segments it at clause
// boundaries, emitting each normalized sentence at most once per turn.
type Splitter struct {
	buf  string
	seen map[string]struct{}
}

func NewSplitter() *Splitter {
	return &Splitter{seen: make(map[string]struct{})}
}

// Push appends new text and returns any completed clauses, deduplicated.
// The trailing incomplete fragment stays buffered.
func (s *Splitter) Push(text string) []string {
	s.buf += text
	complete, rest := splitClauses(s.buf)
	s.buf = rest
	return s.dedupe(complete)
}

// Flush emits the non-empty remainder as a final sentence. Called at stream
// end, where no trailing punctuation is guaranteed.
func (s *Splitter) Flush() []string {
	rem := strings.TrimSpace(s.buf)
	s.buf = ""
	if rem == "" {
		return nil
	}
	return s.dedupe([]string{rem})
}

func (s *Splitter) dedupe(in []string) []string {
	out := in[:0]
	for _, sent := range in {
		key := NormalizeSentence(sent)
		if key == "" {
			continue
		}
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		out = append(out, sent)
	}
	return out
}

// NormalizeSentence collapses all whitespace runs to single spaces.
func NormalizeSentence(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitClauses splits at sentence-ending punctuation followed by whitespace,
// or at a standalone dash clause separator. The dash stays attached to the
// preceding clause so concatenating the output reconstructs the input.
func splitClauses(buf string) (complete []string, rest string) {
	start := 0
	i := 0
	for i < len(buf) {
		c := buf[i]
		boundary := false
		cut := i + 1
		switch {
		case (c == '.' || c == '!' || c == '?' || c == ',') && i+1 < len(buf) && isSpace(buf[i+1]):
			boundary = true
		case c == '-' && i > start && isSpace(buf[i-1]) && i+1 < len(buf) && isSpace(buf[i+1]):
			boundary = true
		}
		if !boundary {
			i++
			continue
		}
		seg := strings.TrimSpace(buf[start:cut])
		if seg != "" {
			complete = append(complete, seg)
		}
		i = cut
		for i < len(buf) && isSpace(buf[i]) {
			i++
		}
		start = i
	}
	return complete, buf[start:]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
