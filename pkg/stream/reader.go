// Package stream turns an incremental agent event feed into an ordered
// sequence of speakable chunks: it extracts reply text from heterogeneous
// JSON payloads, reconciles delta against full-resend upstreams, splits at
// clause boundaries, and guarantees each sentence is emitted once per turn.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/vokal-ai/vokal/pkg/logging"
)

// DoneMarker is the explicit end-of-stream sentinel some upstreams send as a
// raw event body.
const DoneMarker = "[DONE]"

// Reader consumes one turn's raw event payloads and produces a lazy,
// ordered, non-restartable chunk sequence. The chunk channel is closed after
// the done chunk. Accumulator and dedup state are scoped to the Reader and
// die with it, so nothing leaks across turns.
type Reader struct {
	events <-chan []byte
	chunks chan Chunk
	acc    Accumulator
	spl    *Splitter
	logger *slog.Logger
}

func NewReader(events <-chan []byte) *Reader {
	return &Reader{
		events: events,
		chunks: make(chan Chunk, 16),
		spl:    NewSplitter(),
		logger: logging.NewComponentLogger(slog.Default(), "stream_reader"),
	}
}

// Chunks delivers progress, sentence, and done chunks in order. Progress
// chunks may interleave; sentence chunks never reorder relative to each
// other.
func (r *Reader) Chunks() <-chan Chunk { return r.chunks }

// Run drains the event feed until the done marker, a terminal payload, or
// transport close, then flushes the sentence remainder and emits done.
// Run must be called exactly once.
func (r *Reader) Run(ctx context.Context) {
	defer close(r.chunks)
	defer r.finish(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-r.events:
			if !ok {
				return
			}
			if r.handle(ctx, raw) {
				return
			}
		}
	}
}

// handle processes one event; true means the stream is over.
func (r *Reader) handle(ctx context.Context, raw []byte) bool {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return false
	}
	if body == DoneMarker {
		return true
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		// One malformed frame is cheaper to lose than the whole reply.
		r.logger.Debug("event_parse_skip", "error", err.Error())
		return false
	}

	typ := payloadType(payload)
	if endTypes[typ] {
		return true
	}
	if progressTypes[typ] {
		r.emit(ctx, Progress(extractText(payload)))
		return false
	}

	text := extractText(payload)
	if text == "" {
		return false
	}
	delta := r.acc.Reconcile(text)
	if delta == "" {
		return false
	}
	for _, sent := range r.spl.Push(delta) {
		r.emit(ctx, Sentence(sent))
	}
	return false
}

func (r *Reader) finish(ctx context.Context) {
	for _, sent := range r.spl.Flush() {
		r.emit(ctx, Sentence(sent))
	}
	r.emit(ctx, Done())
}

func (r *Reader) emit(ctx context.Context, c Chunk) {
	select {
	case r.chunks <- c:
	case <-ctx.Done():
	}
}
