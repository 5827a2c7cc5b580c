package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vokal-ai/vokal/pkg/audio"
	"github.com/vokal-ai/vokal/pkg/providers/mock"
	"github.com/vokal-ai/vokal/pkg/segment"
)

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *noticeLog) record(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *noticeLog) has(kind NoticeKind) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, notice := range n.notices {
		if notice.Kind == kind {
			return true
		}
	}
	return false
}

// sessionedSource plays a different frame script for each capture session,
// so a silent first capture can be followed by a spoken one. After the last
// script it replays the final one.
type sessionedSource struct {
	mu       sync.Mutex
	scripts  [][]audio.Frame
	interval time.Duration
	starts   int
	stop     chan struct{}
}

func (s *sessionedSource) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *sessionedSource) Start(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	script := s.scripts[len(s.scripts)-1]
	if s.starts < len(s.scripts) {
		script = s.scripts[s.starts]
	}
	s.starts++
	s.stop = make(chan struct{})
	stop := s.stop
	interval := s.interval
	s.mu.Unlock()

	out := make(chan audio.Frame, len(script))
	go func() {
		defer close(out)
		for _, f := range script {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return
			case <-stop:
				return
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

func (s *sessionedSource) Close() error {
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

type failingSource struct{}

func (failingSource) Start(ctx context.Context) (<-chan audio.Frame, error) {
	return nil, errors.New("device busy")
}

func (failingSource) Close() error { return nil }

func testSegConfig(threshold float64) segment.Config {
	return segment.Config{
		SilenceMs:                      50,
		ThinkingSilenceMs:              100,
		RMSThreshold:                   threshold,
		MaxRecordMs:                    2000,
		ThinkingMaxRecordMs:            4000,
		MinBlobSize:                    1,
		MinValidDurationMs:             1,
		MinDurationBeforeSilenceStopMs: 1,
	}
}

// speechFrames is one spoken burst followed by enough quiet to trip the
// silence window at the scripted frame interval.
func speechFrames(loudRMS float64) []audio.Frame {
	var out []audio.Frame
	for i := 0; i < 3; i++ {
		out = append(out, audio.Frame{Samples: []int16{8000, -8000}, RMS: loudRMS})
	}
	for i := 0; i < 60; i++ {
		out = append(out, audio.Frame{Samples: []int16{10, -10}, RMS: 0.001})
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func runManager(t *testing.T, m *Manager) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- m.Run(ctx) }()
	return cancelCtx, ch
}

func TestManagerFullTurnCycle(t *testing.T) {
	// Speech at 0.2 clears the 0.1 base threshold but stays under the 0.3
	// interruption floor, so playback is not treated as a barge-in.
	src := mock.NewSource(speechFrames(0.2)...)
	src.Interval = 2 * time.Millisecond
	seg := segment.New(testSegConfig(0.1), src)
	tr := mock.NewTranscriber("what time is it")
	ag := mock.NewAgent(
		`{"message":{"type":"TextChunk","text":"It is noon. Anything else?"}}`,
		`{"message":{"type":"EndOfTurn"}}`,
	)
	synth := mock.NewSynthesizer()

	m := NewManager(ManagerConfig{BargeInMultiplier: 3}, seg, tr, ag, synth)
	listener := &captureListener{}
	m.AddListener(listener)

	cancel, done := runManager(t, m)
	waitFor(t, "reply spoken", func() bool { return len(synth.Spoken()) >= 2 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	spoken := synth.Spoken()
	if spoken[0] != "It is noon." || spoken[1] != "Anything else?" {
		t.Fatalf("unexpected spoken sentences %v", spoken)
	}
	if !listener.HasTransition(StateListening, StateProcessing, "") {
		t.Fatalf("missing listening -> processing transition")
	}
	if !listener.HasTransition(StateProcessing, StateSpeaking, "first sentence") {
		t.Fatalf("missing processing -> speaking transition")
	}
	if !listener.HasTransition(StateSpeaking, StateListening, "") {
		t.Fatalf("missing speaking -> listening transition")
	}
	if m.State() != StateIdle {
		t.Fatalf("expected IDLE after shutdown, got %s", m.State())
	}
	if tr.Calls() == 0 {
		t.Fatalf("expected transcription to run")
	}
}

func TestManagerBargeInInterruptsReply(t *testing.T) {
	// With a 0.01 base the same 0.5 speech bursts exceed the 0.03
	// interruption floor once the monitor session replays them.
	src := mock.NewSource(speechFrames(0.5)...)
	src.Interval = 2 * time.Millisecond
	seg := segment.New(testSegConfig(0.01), src)
	tr := mock.NewTranscriber("stop talking")
	ag := mock.NewAgent(
		`{"message":{"type":"TextChunk","text":"Let me explain at length. "}}`,
		`{"message":{"type":"TextChunk","text":"There are many details. "}}`,
		`{"message":{"type":"TextChunk","text":"And even more context. "}}`,
		`{"message":{"type":"TextChunk","text":"Still going. "}}`,
		`{"message":{"type":"EndOfTurn"}}`,
	)
	ag.Delay = 20 * time.Millisecond
	synth := mock.NewSynthesizer()
	synth.Latency = 30 * time.Millisecond

	m := NewManager(ManagerConfig{BargeInMultiplier: 3}, seg, tr, ag, synth)
	listener := &captureListener{}
	m.AddListener(listener)

	cancel, done := runManager(t, m)
	waitFor(t, "barge-in transition", func() bool {
		return listener.HasTransition(StateSpeaking, StateListening, "barge-in")
	})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(synth.Spoken()) >= 5 {
		t.Fatalf("expected reply cut short, spoke %v", synth.Spoken())
	}
}

func quietCapture(n int) []audio.Frame {
	out := make([]audio.Frame, n)
	for i := range out {
		out[i] = audio.Frame{Samples: []int16{10, -10}, RMS: 0.001}
	}
	return out
}

func TestManagerSilentCaptureRestartsListening(t *testing.T) {
	// The first session is all quiet and dies at the record limit; the
	// conversation must re-arm capture and complete the next turn instead
	// of waiting forever on a session that emitted nothing.
	cfg := testSegConfig(0.1)
	cfg.MaxRecordMs = 150
	cfg.ThinkingMaxRecordMs = 300
	src := &sessionedSource{
		scripts:  [][]audio.Frame{quietCapture(200), speechFrames(0.2)},
		interval: 2 * time.Millisecond,
	}
	seg := segment.New(cfg, src)
	tr := mock.NewTranscriber("hello")
	ag := mock.NewAgent(
		`{"message":{"type":"TextChunk","text":"Hi there."}}`,
		`{"message":{"type":"EndOfTurn"}}`,
	)
	synth := mock.NewSynthesizer()

	m := NewManager(ManagerConfig{BargeInMultiplier: 3}, seg, tr, ag, synth)
	listener := &captureListener{}
	m.AddListener(listener)

	cancel, done := runManager(t, m)
	waitFor(t, "capture re-armed after silent discard", func() bool { return src.Starts() >= 2 })
	waitFor(t, "reply spoken after silent capture", func() bool { return len(synth.Spoken()) >= 1 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := synth.Spoken(); got[0] != "Hi there." {
		t.Fatalf("unexpected spoken sentences %v", got)
	}
	if m.State() != StateIdle {
		t.Fatalf("expected IDLE after shutdown, got %s", m.State())
	}
}

func TestManagerAgentErrorStaysInternal(t *testing.T) {
	src := mock.NewSource(speechFrames(0.2)...)
	src.Interval = 2 * time.Millisecond
	seg := segment.New(testSegConfig(0.1), src)
	ag := mock.NewAgent()
	ag.Err = errors.New("gateway down")
	synth := mock.NewSynthesizer()

	m := NewManager(ManagerConfig{BargeInMultiplier: 3}, seg, mock.NewTranscriber("hello"), ag, synth)
	listener := &captureListener{}
	m.AddListener(listener)
	notices := &noticeLog{}
	m.SetNoticeFunc(notices.record)

	cancel, done := runManager(t, m)
	waitFor(t, "recovery to listening", func() bool {
		return listener.HasTransition(StateProcessing, StateListening, "agent unavailable")
	})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	// Agent failures are not user-facing; the loop recovers silently.
	if notices.has(NoticeAgentError) {
		t.Fatalf("agent failure must not produce a user notice")
	}
	if len(synth.Spoken()) != 0 {
		t.Fatalf("nothing should be spoken when the agent is unreachable")
	}
}

func TestManagerTranscribeErrorReturnsToListening(t *testing.T) {
	src := mock.NewSource(speechFrames(0.2)...)
	src.Interval = 2 * time.Millisecond
	seg := segment.New(testSegConfig(0.1), src)
	tr := mock.NewTranscriber("")
	tr.Err = errors.New("service down")
	synth := mock.NewSynthesizer()

	m := NewManager(ManagerConfig{BargeInMultiplier: 3}, seg, tr, mock.NewAgent(), synth)
	listener := &captureListener{}
	m.AddListener(listener)
	notices := &noticeLog{}
	m.SetNoticeFunc(notices.record)

	cancel, done := runManager(t, m)
	waitFor(t, "transcribe error notice", func() bool { return notices.has(NoticeTranscribeError) })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if !listener.HasTransition(StateProcessing, StateListening, "transcription failed") {
		t.Fatalf("expected recovery to listening")
	}
	if len(synth.Spoken()) != 0 {
		t.Fatalf("nothing should be spoken on transcription failure")
	}
}

func TestManagerEmptyTranscriptNotice(t *testing.T) {
	src := mock.NewSource(speechFrames(0.2)...)
	src.Interval = 2 * time.Millisecond
	seg := segment.New(testSegConfig(0.1), src)
	tr := mock.NewTranscriber("")

	m := NewManager(ManagerConfig{BargeInMultiplier: 3}, seg, tr, mock.NewAgent(), mock.NewSynthesizer())
	notices := &noticeLog{}
	m.SetNoticeFunc(notices.record)

	cancel, done := runManager(t, m)
	waitFor(t, "empty transcript notice", func() bool { return notices.has(NoticeEmptyTranscript) })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestManagerCaptureErrorEndsConversation(t *testing.T) {
	seg := segment.New(testSegConfig(0.1), failingSource{})
	m := NewManager(ManagerConfig{BargeInMultiplier: 3}, seg, mock.NewTranscriber("x"), mock.NewAgent(), mock.NewSynthesizer())
	notices := &noticeLog{}
	m.SetNoticeFunc(notices.record)

	err := m.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error when microphone cannot open")
	}
	if !notices.has(NoticeCaptureError) {
		t.Fatalf("expected capture error notice")
	}
	if m.State() != StateIdle {
		t.Fatalf("expected IDLE after failure, got %s", m.State())
	}
}
