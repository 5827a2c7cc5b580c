package speech

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vokal-ai/vokal/pkg/errorsx"
	"github.com/vokal-ai/vokal/pkg/logging"
)

// Queue feeds sentences to a Synthesizer one at a time, strictly in enqueue
// order. Clear drops everything pending and interrupts the in-flight
// sentence; onDrained fires each time the queue runs empty.
type Queue struct {
	mu        sync.Mutex
	synth     Synthesizer
	pending   []string
	running   bool
	cancel    context.CancelFunc
	onDrained func()
	logger    *slog.Logger
}

func NewQueue(synth Synthesizer, onDrained func()) *Queue {
	return &Queue{
		synth:     synth,
		onDrained: onDrained,
		logger:    logging.NewComponentLogger(slog.Default(), "speech_queue"),
	}
}

// Enqueue appends a sentence and starts the worker if idle.
func (q *Queue) Enqueue(ctx context.Context, sentence string) {
	if sentence == "" {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, sentence)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	workCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.mu.Unlock()

	go q.work(workCtx)
}

// Clear interrupts the in-flight sentence and drops everything queued.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = nil
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Idle reports whether nothing is queued or being spoken.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.running && len(q.pending) == 0
}

func (q *Queue) work(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 || ctx.Err() != nil {
			q.running = false
			q.cancel = nil
			q.mu.Unlock()
			if q.onDrained != nil {
				q.onDrained()
			}
			return
		}
		sentence := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if err := q.synth.Speak(ctx, sentence); err != nil && ctx.Err() == nil {
			q.logger.Warn("speak_error",
				"reason_code", string(errorsx.ReasonSpeechSynthesize), "error", err.Error())
		}
	}
}
