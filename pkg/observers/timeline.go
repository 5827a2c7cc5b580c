// Package observers records conversation timelines as JSONL artifacts for
// postmortem inspection.
package observers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vokal-ai/vokal/pkg/redact"
	"github.com/vokal-ai/vokal/pkg/turn"
)

// Timeline appends turn state changes and notices for one conversation to
// <dir>/<conversation-id>.jsonl. It implements turn.StateListener.
type Timeline struct {
	dir string
	id  string

	mu   sync.Mutex
	file *os.File
}

func NewTimeline(dir, conversationID string) *Timeline {
	return &Timeline{dir: dir, id: conversationID}
}

type timelineEntry struct {
	Time   time.Time `json:"time"`
	Event  string    `json:"event"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Kind   string    `json:"kind,omitempty"`
	Text   string    `json:"text,omitempty"`
}

// OnStateChange implements turn.StateListener.
func (t *Timeline) OnStateChange(ev turn.StateChange) {
	t.write(timelineEntry{
		Time:   ev.Timestamp.UTC(),
		Event:  "state_change",
		From:   ev.From.String(),
		To:     ev.To.String(),
		Reason: ev.Reason,
	})
}

// RecordNotice appends a user-visible notice.
func (t *Timeline) RecordNotice(n turn.Notice) {
	t.write(timelineEntry{
		Time:  time.Now().UTC(),
		Event: "notice",
		Kind:  string(n.Kind),
		Text:  redact.Text(n.Message),
	})
}

func (t *Timeline) write(entry timelineEntry) {
	if strings.TrimSpace(t.dir) == "" {
		return
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		if err := os.MkdirAll(t.dir, 0o755); err != nil {
			return
		}
		path := filepath.Join(t.dir, sanitizeID(t.id)+".jsonl")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		t.file = f
	}
	_, _ = t.file.Write(append(line, '\n'))
}

// Close closes the underlying artifact file.
func (t *Timeline) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// PurgeArtifacts removes timeline files older than maxAge and returns how
// many were deleted.
func PurgeArtifacts(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "conversation"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}
