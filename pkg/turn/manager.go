// Package turn owns the Idle/Listening/Processing/Speaking state machine
// and coordinates the segmenter, barge-in detector, transcription client,
// agent feed, and speech output so the two sides of the conversation never
// talk over each other except on an intentional barge-in.
package turn

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vokal-ai/vokal/pkg/agent"
	"github.com/vokal-ai/vokal/pkg/bargein"
	"github.com/vokal-ai/vokal/pkg/errorsx"
	"github.com/vokal-ai/vokal/pkg/logging"
	"github.com/vokal-ai/vokal/pkg/redact"
	"github.com/vokal-ai/vokal/pkg/segment"
	"github.com/vokal-ai/vokal/pkg/speech"
	"github.com/vokal-ai/vokal/pkg/stream"
	"github.com/vokal-ai/vokal/pkg/transcribe"
)

// ManagerConfig tunes the orchestrator.
type ManagerConfig struct {
	MIMEType          string
	BargeInMultiplier float64
}

// Manager drives one conversation. The segmenter records only in Listening;
// in Speaking it runs in monitor mode so the barge-in detector can observe
// frames without anything ever reaching transcription. Every failure path
// returns the machine to Listening or Idle, never leaving it stuck.
type Manager struct {
	cfg    ManagerConfig
	sm     *stateMachine
	seg    *segment.Segmenter
	det    *bargein.Detector
	tr     transcribe.Transcriber
	ag     agent.Agent
	queue  *speech.Queue
	notify NoticeFunc
	logger *slog.Logger

	interrupts chan struct{}
	drained    chan struct{}
}

func NewManager(cfg ManagerConfig, seg *segment.Segmenter, tr transcribe.Transcriber, ag agent.Agent, synth speech.Synthesizer) *Manager {
	if cfg.MIMEType == "" {
		cfg.MIMEType = transcribe.DefaultMIMEType
	}
	m := &Manager{
		cfg:        cfg,
		sm:         newStateMachine(),
		seg:        seg,
		tr:         tr,
		ag:         ag,
		logger:     logging.NewComponentLogger(slog.Default(), "turn_manager"),
		interrupts: make(chan struct{}, 1),
		drained:    make(chan struct{}, 1),
	}
	m.det = bargein.New(seg.Config().RMSThreshold, cfg.BargeInMultiplier, m.onBargeIn)
	seg.SetFrameTap(m.det.Observe)
	m.queue = speech.NewQueue(synth, m.onDrained)
	return m
}

// State returns the current turn state.
func (m *Manager) State() State { return m.sm.State() }

// AddListener registers a listener for state change events.
func (m *Manager) AddListener(l StateListener) { m.sm.AddListener(l) }

// SetNoticeFunc registers the user-feedback sink.
func (m *Manager) SetNoticeFunc(fn NoticeFunc) { m.notify = fn }

// SetThinkingPace switches the segmenter to its patient timing variants.
func (m *Manager) SetThinkingPace(enabled bool) { m.seg.SetThinkingPace(enabled) }

// Run drives the conversation until ctx is cancelled or the microphone
// cannot be acquired. It always leaves the machine in Idle.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.sm.Transition(StateListening, "conversation start"); err != nil {
		return err
	}
	for {
		if ctx.Err() != nil {
			_ = m.sm.Transition(StateIdle, "conversation end")
			return nil
		}
		if err := m.runTurn(ctx); err != nil {
			_ = m.sm.Transition(StateIdle, "capture unavailable")
			return err
		}
		if m.sm.State() != StateListening {
			return nil
		}
	}
}

// runTurn executes one listen → process → speak cycle starting from
// Listening. A nil return with state Listening means the loop continues.
func (m *Manager) runTurn(ctx context.Context) error {
	turnID := uuid.NewString()

	if err := m.seg.Start(ctx, segment.ModeCapture); err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonCaptureOpen)
		m.noticeForError(err, NoticeCaptureError, "microphone unavailable")
		m.logger.Error("capture_open_error", "turn_id", turnID,
			"reason_code", string(errorsx.Reason(err)), "error", err.Error())
		return err
	}

	var utt segment.Utterance
	select {
	case <-ctx.Done():
		m.seg.Stop(true)
		_ = m.sm.Transition(StateIdle, "conversation end")
		return nil
	case utt = <-m.seg.Utterances():
	}

	// Silent or too-short captures end their session without anything to
	// transcribe; stay in Listening and re-arm a fresh capture.
	if utt.Discarded {
		m.logger.Debug("capture_discarded", "turn_id", turnID,
			"duration_ms", utt.Duration.Milliseconds())
		return nil
	}

	if err := m.sm.Transition(StateProcessing, "utterance finalized"); err != nil {
		return err
	}
	m.logger.Debug("utterance_ready", "turn_id", turnID,
		"duration_ms", utt.Duration.Milliseconds(), "bytes", len(utt.PCM))

	text, err := m.tr.Transcribe(ctx, utt.PCM, m.cfg.MIMEType)
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonTranscribeRequest)
		m.noticeForError(err, NoticeTranscribeError, "could not transcribe, please try again")
		m.logger.Warn("transcribe_error", "turn_id", turnID,
			"reason_code", string(errorsx.Reason(err)), "error", err.Error())
		return m.sm.Transition(StateListening, "transcription failed")
	}
	if text == "" {
		m.sendNotice(NoticeEmptyTranscript, "didn't catch that, please try again")
		return m.sm.Transition(StateListening, "empty transcription")
	}
	m.logger.Info("user_text", "turn_id", turnID, "text", redact.Text(text))

	events, err := m.ag.OpenTurn(ctx, text)
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonAgentConnect)
		m.noticeForError(err, NoticeAgentError, "assistant unavailable")
		m.logger.Warn("agent_open_error", "turn_id", turnID,
			"reason_code", string(errorsx.Reason(err)), "error", err.Error())
		return m.sm.Transition(StateListening, "agent unavailable")
	}

	return m.speakReply(ctx, turnID, events)
}

// speakReply consumes one turn's chunk stream, entering Speaking on the
// first sentence and returning to Listening once the reply is fully spoken,
// truncated by a transport drop, or interrupted by a barge-in.
func (m *Manager) speakReply(ctx context.Context, turnID string, events <-chan []byte) error {
	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	reader := stream.NewReader(events)
	go reader.Run(streamCtx)

	m.drainSignals()

	speaking := false
	sentences := 0
	started := time.Now()
	chunks := reader.Chunks()
	for {
		select {
		case <-ctx.Done():
			m.endSpeaking(speaking)
			_ = m.sm.Transition(StateIdle, "conversation end")
			return nil

		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				if !speaking {
					return m.sm.Transition(StateListening, "reply complete")
				}
				if m.queue.Idle() {
					m.endSpeaking(speaking)
					m.logger.Info("reply_spoken", "turn_id", turnID,
						"sentences", sentences, "elapsed_ms", time.Since(started).Milliseconds())
					return m.sm.Transition(StateListening, "reply spoken")
				}
				continue
			}
			switch chunk.Kind {
			case stream.KindProgress:
				m.sendNotice(NoticeProgress, chunk.Text)
			case stream.KindSentence:
				if !speaking {
					speaking = true
					if err := m.sm.Transition(StateSpeaking, "first sentence"); err != nil {
						return err
					}
					// Monitor-only capture: frames feed the barge-in
					// detector and are never buffered or transcribed.
					if err := m.seg.Start(ctx, segment.ModeMonitor); err != nil {
						m.logger.Warn("bargein_monitor_error", "turn_id", turnID, "error", err.Error())
					}
					m.det.Arm()
				}
				sentences++
				m.queue.Enqueue(ctx, chunk.Text)
			case stream.KindDone:
				m.logger.Debug("reply_done_marker", "turn_id", turnID)
			}

		case <-m.interrupts:
			cancelStream()
			m.queue.Clear()
			m.endSpeaking(speaking)
			m.logger.Info("barge_in", "turn_id", turnID, "sentences_spoken", sentences)
			go drainChunks(chunks)
			return m.sm.Transition(StateListening, "barge-in")

		case <-m.drained:
			if chunks == nil && m.queue.Idle() {
				m.endSpeaking(speaking)
				m.logger.Info("reply_spoken", "turn_id", turnID,
					"sentences", sentences, "elapsed_ms", time.Since(started).Milliseconds())
				return m.sm.Transition(StateListening, "reply spoken")
			}
		}
	}
}

// endSpeaking disarms barge-in and tears down the monitor session.
func (m *Manager) endSpeaking(speaking bool) {
	if !speaking {
		return
	}
	m.det.Disarm()
	m.seg.Stop(true)
}

func (m *Manager) onBargeIn() {
	select {
	case m.interrupts <- struct{}{}:
	default:
	}
}

func (m *Manager) onDrained() {
	select {
	case m.drained <- struct{}{}:
	default:
	}
}

// drainSignals discards stale interrupt/drained signals from a prior turn.
func (m *Manager) drainSignals() {
	select {
	case <-m.interrupts:
	default:
	}
	select {
	case <-m.drained:
	default:
	}
}

// noticeForError surfaces a failure to the user only when its reason code
// is user-facing; internal failures stay in the logs.
func (m *Manager) noticeForError(err error, kind NoticeKind, msg string) {
	if !errorsx.Reason(err).UserFacing() {
		return
	}
	m.sendNotice(kind, msg)
}

func (m *Manager) sendNotice(kind NoticeKind, msg string) {
	if m.notify != nil {
		m.notify(Notice{Kind: kind, Message: msg})
	}
}

func drainChunks(chunks <-chan stream.Chunk) {
	if chunks == nil {
		return
	}
	for range chunks {
	}
}
