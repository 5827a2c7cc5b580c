// Package vokal wires the voice turn-taking pipeline together: audio source,
// utterance segmenter, barge-in detector, transcription, agent feed, and
// speech output, all driven by the turn state machine.
package vokal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vokal-ai/vokal/pkg/agent"
	"github.com/vokal-ai/vokal/pkg/audio"
	"github.com/vokal-ai/vokal/pkg/configutil"
	"github.com/vokal-ai/vokal/pkg/logging"
	"github.com/vokal-ai/vokal/pkg/observers"
	"github.com/vokal-ai/vokal/pkg/providers/mock"
	"github.com/vokal-ai/vokal/pkg/redact"
	"github.com/vokal-ai/vokal/pkg/segment"
	"github.com/vokal-ai/vokal/pkg/speech"
	"github.com/vokal-ai/vokal/pkg/transcribe"
	"github.com/vokal-ai/vokal/pkg/turn"
)

// Engine owns one conversation's pipeline.
type Engine struct {
	cfg      Config
	id       string
	manager  *turn.Manager
	timeline *observers.Timeline
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// EngineOptions allows callers to override the built-in providers, for
// embedding or tests.
type EngineOptions struct {
	Config      Config
	Source      audio.Source
	Transcriber transcribe.Transcriber
	Agent       agent.Agent
	Synthesizer speech.Synthesizer
	Notices     turn.NoticeFunc
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("vokal_init",
		"environment", cfg.Environment,
		"transcriber_provider", cfg.Vendors.Transcriber.Provider,
		"agent_provider", cfg.Vendors.Agent.Provider,
		"speech_provider", cfg.Vendors.Speech.Provider,
	)

	src := opts.Source
	if src == nil {
		var err error
		if src, err = buildSource(cfg.Audio); err != nil {
			return nil, err
		}
	}
	tr := opts.Transcriber
	if tr == nil {
		var err error
		if tr, err = buildTranscriber(cfg.Vendors.Transcriber); err != nil {
			return nil, err
		}
	}
	ag := opts.Agent
	if ag == nil {
		var err error
		if ag, err = buildAgent(cfg.Vendors.Agent); err != nil {
			return nil, err
		}
	}
	synth := opts.Synthesizer
	if synth == nil {
		var err error
		if synth, err = buildSynthesizer(cfg.Vendors.Speech); err != nil {
			return nil, err
		}
	}

	seg := segment.New(cfg.Segment, src)
	seg.SetThinkingPace(cfg.Turn.ThinkingPace)
	manager := turn.NewManager(turn.ManagerConfig{
		BargeInMultiplier: cfg.Turn.BargeInMultiplier,
	}, seg, tr, ag, synth)

	e := &Engine{
		cfg:     cfg,
		id:      uuid.NewString(),
		manager: manager,
		logger:  logging.NewComponentLogger(slog.Default(), "engine"),
	}

	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if cfg.Observability.RetentionDays > 0 {
			_, _ = observers.PurgeArtifacts(dir, time.Duration(cfg.Observability.RetentionDays)*24*time.Hour)
		}
		e.timeline = observers.NewTimeline(dir, e.id)
		manager.AddListener(e.timeline)
	}

	manager.SetNoticeFunc(func(n turn.Notice) {
		if e.timeline != nil {
			e.timeline.RecordNotice(n)
		}
		if opts.Notices != nil {
			opts.Notices(n)
		} else {
			e.logger.Info("notice", "kind", string(n.Kind), "message", n.Message)
		}
	})
	return e, nil
}

// Manager exposes the turn manager for listeners and pace control.
func (e *Engine) Manager() *turn.Manager { return e.manager }

// Run drives the conversation until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()
	err := e.manager.Run(runCtx)
	if e.timeline != nil {
		_ = e.timeline.Close()
	}
	return err
}

// Drain implements runner.Drainer: it cancels the conversation loop, which
// tears down any active capture session on its way out.
func (e *Engine) Drain() error {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func buildSource(cfg AudioConfig) (audio.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", "portaudio":
		src := audio.NewPortAudioSource()
		if cfg.SampleRate > 0 {
			src.SampleRate = cfg.SampleRate
		}
		return src, nil
	case "websocket":
		return audio.NewWebsocketListener(cfg.WSAddr, cfg.WSPath), nil
	case "mock":
		return mock.NewSource(), nil
	default:
		return nil, fmt.Errorf("unknown audio source %q", cfg.Source)
	}
}

func buildTranscriber(v VendorConfig) (transcribe.Transcriber, error) {
	switch strings.ToLower(strings.TrimSpace(v.Provider)) {
	case "deepgram":
		var cfg transcribe.DeepgramConfig
		if err := decodeVendor(v.Settings, &cfg); err != nil {
			return nil, fmt.Errorf("transcriber settings: %w", err)
		}
		return transcribe.NewDeepgram(cfg), nil
	case "mock":
		return mock.NewTranscriber("mock transcript"), nil
	default:
		return nil, fmt.Errorf("unknown transcriber provider %q", v.Provider)
	}
}

func buildAgent(v VendorConfig) (agent.Agent, error) {
	switch strings.ToLower(strings.TrimSpace(v.Provider)) {
	case "sse":
		return agent.NewSSEClient(v.Settings)
	case "openai":
		return agent.NewOpenAIAgent(v.Settings)
	case "mock":
		return mock.NewAgent(
			`{"message":{"type":"TextChunk","text":"Hello there. How can I help?"}}`,
			`{"message":{"type":"EndOfTurn"}}`,
		), nil
	default:
		return nil, fmt.Errorf("unknown agent provider %q", v.Provider)
	}
}

func decodeVendor(settings map[string]any, out any) error {
	return configutil.DecodeSettings(settings, out)
}

func buildSynthesizer(v VendorConfig) (speech.Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(v.Provider)) {
	case "deepgram":
		return speech.NewDeepgramSynthesizer(v.Settings, audio.NewPortAudioPlayer())
	case "mock":
		return mock.NewSynthesizer(), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", v.Provider)
	}
}
