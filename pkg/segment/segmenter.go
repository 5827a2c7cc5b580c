package segment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vokal-ai/vokal/pkg/audio"
	"github.com/vokal-ai/vokal/pkg/logging"
)

// ErrSessionActive is returned when Start is called while a capture session
// already owns the audio source.
var ErrSessionActive = errors.New("capture session already active")

// FrameTap observes every frame the active session sees. The barge-in
// detector hangs off this hook.
type FrameTap func(audio.Frame)

// Segmenter classifies live audio frames as speech or silence and emits a
// finalized Utterance once sustained silence follows detected speech, or the
// hard record limit is hit. A capture session that ends on its own without a
// valid utterance emits a Discarded result instead, so the caller always
// sees the session end. Monitor sessions and explicit discarding stops emit
// nothing.
type Segmenter struct {
	mu       sync.Mutex
	cfg      Config
	src      audio.Source
	tap      FrameTap
	sess     *captureSession
	discard  bool
	thinking bool
	state    SessionState
	out      chan Utterance
	logger   *slog.Logger
	now      func() time.Time
}

func New(cfg Config, src audio.Source) *Segmenter {
	return &Segmenter{
		cfg:    cfg.withDefaults(),
		src:    src,
		state:  StateIdle,
		out:    make(chan Utterance, 4),
		logger: logging.NewComponentLogger(slog.Default(), "segmenter"),
		now:    time.Now,
	}
}

// Utterances delivers one result per capture cycle: a finalized utterance,
// or a Discarded marker when the cycle produced nothing usable.
func (s *Segmenter) Utterances() <-chan Utterance { return s.out }

// SetFrameTap registers an observer for raw frames. Must be set before Start.
func (s *Segmenter) SetFrameTap(tap FrameTap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tap = tap
}

// SetThinkingPace switches the silence window and record limit to their
// patient variants for subsequent sessions.
func (s *Segmenter) SetThinkingPace(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thinking = enabled
}

// State reports the current session lifecycle state.
func (s *Segmenter) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Config returns the effective configuration.
func (s *Segmenter) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Start acquires the audio source and begins a capture cycle in the given
// mode. The source is exclusively owned by the session until it ends.
func (s *Segmenter) Start(ctx context.Context, mode Mode) error {
	s.mu.Lock()
	if s.sess != nil {
		s.mu.Unlock()
		return ErrSessionActive
	}
	frames, err := s.src.Start(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	sess := &captureSession{
		id:            uuid.NewString(),
		mode:          mode,
		frames:        frames,
		done:          make(chan struct{}),
		startedAt:     s.now(),
		silenceWindow: s.cfg.silence(s.thinking),
		recordLimit:   s.cfg.maxRecord(s.thinking),
	}
	s.sess = sess
	s.discard = false
	s.state = StateRecording
	s.mu.Unlock()

	s.logger.Debug("capture_start", "session_id", sess.id, "mode", int(mode),
		"silence_ms", sess.silenceWindow.Milliseconds(), "max_record_ms", sess.recordLimit.Milliseconds())
	go s.run(sess)
	return nil
}

// Stop ends the active capture cycle. With discard set, buffered audio is
// thrown away and no Utterance is emitted, even mid-recording. Stop blocks
// until the session's resources are released.
func (s *Segmenter) Stop(discard bool) {
	s.mu.Lock()
	sess := s.sess
	if sess == nil {
		s.mu.Unlock()
		return
	}
	if discard {
		s.discard = true
	}
	s.mu.Unlock()

	// Closing the source ends the frame stream; the run goroutine then
	// finalizes or discards and releases everything.
	_ = s.src.Close()
	<-sess.done
}

func (s *Segmenter) run(sess *captureSession) {
	defer close(sess.done)

	for f := range sess.frames {
		s.mu.Lock()
		tap := s.tap
		s.mu.Unlock()
		if tap != nil {
			tap(f)
		}
		if sess.mode == ModeMonitor {
			continue
		}

		now := s.now()
		sess.buf.Write(audio.SamplesToBytes(f.Samples))

		if f.RMS > s.cfg.RMSThreshold {
			sess.hasSpoken = true
			sess.silenceStart = time.Time{}
		} else if sess.hasSpoken && now.Sub(sess.startedAt) > s.cfg.grace() {
			if sess.silenceStart.IsZero() {
				sess.silenceStart = now
			} else if now.Sub(sess.silenceStart) >= sess.silenceWindow {
				s.finish(sess, "silence")
				return
			}
		}

		if now.Sub(sess.startedAt) >= sess.recordLimit {
			s.finish(sess, "record_limit")
			return
		}
	}

	// Frame stream ended externally: Stop, source failure, or context
	// cancellation. Finalize with whatever was buffered.
	s.finish(sess, "stream_end")
}

// finish releases the session's resources and emits the Utterance when it
// clears every validity check. Runs exactly once per session.
func (s *Segmenter) finish(sess *captureSession, reason string) {
	_ = s.src.Close()

	s.mu.Lock()
	discard := s.discard || sess.mode == ModeMonitor
	if discard {
		s.state = StateDiscarded
	} else {
		s.state = StateFinalizing
	}
	s.sess = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
	}()

	if discard {
		s.logger.Debug("capture_discarded", "session_id", sess.id, "reason", reason)
		return
	}

	utt := Utterance{
		ID:        sess.id,
		PCM:       sess.buf.Bytes(),
		Duration:  s.now().Sub(sess.startedAt),
		HasSpoken: sess.hasSpoken,
	}
	if !utt.HasSpoken {
		s.logger.Debug("capture_no_speech", "session_id", sess.id, "reason", reason)
		s.emit(Utterance{ID: sess.id, Duration: utt.Duration, Discarded: true})
		return
	}
	if utt.Duration < s.cfg.minValidDuration() || len(utt.PCM) < s.cfg.MinBlobSize {
		s.logger.Debug("capture_too_small", "session_id", sess.id,
			"duration_ms", utt.Duration.Milliseconds(), "bytes", len(utt.PCM))
		s.emit(Utterance{ID: sess.id, Duration: utt.Duration, Discarded: true})
		return
	}

	s.logger.Debug("utterance_finalized", "session_id", sess.id,
		"reason", reason, "duration_ms", utt.Duration.Milliseconds(), "bytes", len(utt.PCM))
	s.emit(utt)
}

func (s *Segmenter) emit(utt Utterance) {
	select {
	case s.out <- utt:
	default:
		s.logger.Warn("utterance_dropped_full_channel", "session_id", utt.ID)
	}
}
