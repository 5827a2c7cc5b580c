package transcribe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	restinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/vokal-ai/vokal/pkg/errorsx"
	"github.com/vokal-ai/vokal/pkg/logging"
	"github.com/vokal-ai/vokal/pkg/resilience"
)

// DeepgramConfig configures the prerecorded transcription client.
type DeepgramConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Language   string `mapstructure:"language"`
	SampleRate int    `mapstructure:"sample_rate"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// Deepgram transcribes finalized utterances through the Deepgram
// prerecorded REST API. Requests are bound to an explicit timeout sized for
// worst-case utterance length, retried on transient failures, and guarded
// by a circuit breaker.
type Deepgram struct {
	cfg     DeepgramConfig
	api     *listenapi.Client
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewDeepgram(cfg DeepgramConfig) *Deepgram {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = 30000
	}
	rest := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &Deepgram{
		cfg:     cfg,
		api:     listenapi.New(rest),
		retry:   resilience.NewRetryPolicy(2, 300*time.Millisecond),
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
		logger:  logging.NewComponentLogger(slog.Default(), "deepgram_transcribe"),
	}
}

func (d *Deepgram) Transcribe(ctx context.Context, pcm []byte, mimeType string) (string, error) {
	if !d.breaker.Allow() {
		return "", errorsx.Wrapf(errorsx.ReasonTranscribeBreaker, "transcription temporarily unavailable")
	}

	timeout := time.Duration(d.cfg.TimeoutMS) * time.Millisecond
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.cfg.Model,
		Language:    d.cfg.Language,
		Encoding:    "linear16",
		SampleRate:  d.cfg.SampleRate,
		SmartFormat: true,
	}

	var text string
	err := d.retry.Do(reqCtx, func() error {
		res, err := d.api.FromStream(reqCtx, bytes.NewReader(pcm), options)
		if err != nil {
			return err
		}
		text = firstTranscript(res)
		return nil
	})
	if err != nil {
		d.breaker.OnError()
		reason := errorsx.ReasonTranscribeRequest
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			reason = errorsx.ReasonTranscribeTimeout
		}
		d.logger.Warn("transcribe_error", "reason_code", string(reason),
			"mime_type", mimeType, "bytes", len(pcm), "error", err.Error())
		return "", errorsx.Wrap(err, reason)
	}
	d.breaker.OnSuccess()

	// Empty text here is a successful "understood nothing" result.
	d.logger.Debug("transcribe_ok", "bytes", len(pcm), "empty", text == "")
	return text, nil
}

func firstTranscript(res *restinterfaces.PreRecordedResponse) string {
	if res == nil || res.Results == nil {
		return ""
	}
	for _, ch := range res.Results.Channels {
		for _, alt := range ch.Alternatives {
			if alt.Transcript != "" {
				return alt.Transcript
			}
		}
	}
	return ""
}
