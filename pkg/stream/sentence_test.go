package stream

import (
	"strings"
	"testing"
)

func TestReconcileDelta(t *testing.T) {
	var acc Accumulator
	if got := acc.Reconcile("Hello"); got != "Hello" {
		t.Fatalf("expected first payload verbatim, got %q", got)
	}
	if got := acc.Reconcile(" there"); got != " there" {
		t.Fatalf("expected delta appended, got %q", got)
	}
	if acc.Text() != "Hello there" {
		t.Fatalf("unexpected accumulated text %q", acc.Text())
	}
}

func TestReconcileFullResend(t *testing.T) {
	var acc Accumulator
	acc.Reconcile("Hello")
	if got := acc.Reconcile("Hello there"); got != " there" {
		t.Fatalf("expected only the suffix, got %q", got)
	}
}

func TestReconcileRedundantResend(t *testing.T) {
	var acc Accumulator
	acc.Reconcile("Hello there")
	if got := acc.Reconcile("Hello there"); got != "" {
		t.Fatalf("expected identical resend ignored, got %q", got)
	}
	if got := acc.Reconcile("Hello"); got != "" {
		t.Fatalf("expected shorter prefix ignored, got %q", got)
	}
}

func TestReconcileUnrelatedPayload(t *testing.T) {
	var acc Accumulator
	acc.Reconcile("First part. ")
	if got := acc.Reconcile("Second part."); got != "Second part." {
		t.Fatalf("expected unrelated payload kept whole, got %q", got)
	}
	if acc.Text() != "First part. Second part." {
		t.Fatalf("unexpected accumulated text %q", acc.Text())
	}
}

func TestSplitterClauseBoundaries(t *testing.T) {
	s := NewSplitter()
	got := s.Push("Hi. How are you? Great!")
	want := []string{"Hi.", "How are you?"}
	if len(got) != len(want) {
		t.Fatalf("expected %d clauses, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("clause %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	// The trailing fragment has no boundary yet; it surfaces on Flush.
	rest := s.Flush()
	if len(rest) != 1 || rest[0] != "Great!" {
		t.Fatalf("expected flushed remainder, got %v", rest)
	}
}

func TestSplitterIncrementalFragments(t *testing.T) {
	s := NewSplitter()
	if got := s.Push("The answer is fo"); len(got) != 0 {
		t.Fatalf("expected no clause yet, got %v", got)
	}
	got := s.Push("rty-two. Next")
	if len(got) != 1 || got[0] != "The answer is forty-two." {
		t.Fatalf("expected joined clause, got %v", got)
	}
}

func TestSplitterDedupe(t *testing.T) {
	s := NewSplitter()
	first := s.Push("Sure thing. ")
	if len(first) != 1 {
		t.Fatalf("expected one clause, got %v", first)
	}
	again := s.Push("Sure   thing. ")
	if len(again) != 0 {
		t.Fatalf("expected whitespace-variant duplicate suppressed, got %v", again)
	}
	other := s.Push("Something else. ")
	if len(other) != 1 || other[0] != "Something else." {
		t.Fatalf("expected distinct clause to pass, got %v", other)
	}
}

func TestSplitClausesDashSeparator(t *testing.T) {
	complete, rest := splitClauses("I think - maybe yes")
	if len(complete) != 1 || complete[0] != "I think -" {
		t.Fatalf("expected dash kept with preceding clause, got %v", complete)
	}
	if rest != "maybe yes" {
		t.Fatalf("unexpected rest %q", rest)
	}
}

func TestSplitClausesHyphenatedWordNotSplit(t *testing.T) {
	complete, rest := splitClauses("forty-two is the answer")
	if len(complete) != 0 {
		t.Fatalf("expected no split inside hyphenated word, got %v", complete)
	}
	if rest != "forty-two is the answer" {
		t.Fatalf("unexpected rest %q", rest)
	}
}

func TestSplitClausesRoundTrip(t *testing.T) {
	inputs := []string{
		"Hi. How are you? Great! And more",
		"One, two, three - four. Five",
		"No punctuation at all",
		"Trailing period.",
	}
	for _, in := range inputs {
		complete, rest := splitClauses(in)
		joined := strings.Join(append(append([]string{}, complete...), rest), " ")
		if NormalizeSentence(joined) != NormalizeSentence(in) {
			t.Fatalf("round trip broken for %q: got %q", in, joined)
		}
	}
}
