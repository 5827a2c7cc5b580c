// Package mock provides in-memory collaborators for tests and offline runs.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/vokal-ai/vokal/pkg/audio"
)

// Transcriber returns a scripted transcript for every utterance.
type Transcriber struct {
	mu         sync.Mutex
	Transcript string
	Err        error
	calls      int
}

func NewTranscriber(transcript string) *Transcriber {
	return &Transcriber{Transcript: transcript}
}

func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, mimeType string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.Err != nil {
		return "", t.Err
	}
	return t.Transcript, nil
}

func (t *Transcriber) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Agent replays a fixed sequence of raw event payloads for every turn.
type Agent struct {
	Events [][]byte
	Delay  time.Duration
	Err    error
}

func NewAgent(events ...string) *Agent {
	a := &Agent{}
	for _, e := range events {
		a.Events = append(a.Events, []byte(e))
	}
	return a
}

func (a *Agent) OpenTurn(ctx context.Context, userText string) (<-chan []byte, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	out := make(chan []byte, len(a.Events))
	go func() {
		defer close(out)
		for _, e := range a.Events {
			if a.Delay > 0 {
				select {
				case <-time.After(a.Delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Synthesizer records spoken sentences instead of producing audio.
type Synthesizer struct {
	mu       sync.Mutex
	Latency  time.Duration
	sentence []string
}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

func (s *Synthesizer) Speak(ctx context.Context, sentence string) error {
	if s.Latency > 0 {
		select {
		case <-time.After(s.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.sentence = append(s.sentence, sentence)
	s.mu.Unlock()
	return nil
}

func (s *Synthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sentence))
	copy(out, s.sentence)
	return out
}

// Source replays scripted frames. Each Start delivers the configured frames
// and then keeps the channel open (silent) until Close or ctx end, which
// mirrors a microphone that simply hears nothing further.
type Source struct {
	mu       sync.Mutex
	Frames   []audio.Frame
	Interval time.Duration
	stop     chan struct{}
}

func NewSource(frames ...audio.Frame) *Source {
	return &Source{Frames: frames}
}

func (s *Source) Start(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	s.stop = make(chan struct{})
	stop := s.stop
	frames := make([]audio.Frame, len(s.Frames))
	copy(frames, s.Frames)
	interval := s.Interval
	s.mu.Unlock()

	out := make(chan audio.Frame, len(frames))
	go func() {
		defer close(out)
		for _, f := range frames {
			if interval > 0 {
				select {
				case <-time.After(interval):
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}
			select {
			case out <- f:
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
		select {
		case <-ctx.Done():
		case <-stop:
		}
	}()
	return out, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		select {
		case <-s.stop:
		default:
			close(s.stop)
		}
		s.stop = nil
	}
	return nil
}
