package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vokal-ai/vokal/pkg/audio"
	"github.com/vokal-ai/vokal/pkg/configutil"
	"github.com/vokal-ai/vokal/pkg/errorsx"
	"github.com/vokal-ai/vokal/pkg/logging"
)

const deepgramSpeakURL = "https://api.deepgram.com/v1/speak"

// DeepgramSettings configures text-to-speech synthesis.
type DeepgramSettings struct {
	APIKey string `mapstructure:"api_key"`
	Voice  string `mapstructure:"voice"`
}

var deepgramSchema = configutil.Schema{
	Required: []string{"api_key"},
	Optional: []string{"voice"},
}

// DeepgramSynthesizer renders each sentence to linear16 PCM through the
// Deepgram speak endpoint and plays it on the given Player.
type DeepgramSynthesizer struct {
	settings   DeepgramSettings
	httpClient *http.Client
	player     audio.Player
	logger     *slog.Logger
}

func NewDeepgramSynthesizer(settings map[string]any, player audio.Player) (*DeepgramSynthesizer, error) {
	if err := configutil.ValidateSettings(settings, deepgramSchema); err != nil {
		return nil, fmt.Errorf("deepgram speech settings: %w", err)
	}
	var s DeepgramSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("deepgram speech settings: %w", err)
	}
	if s.Voice == "" {
		s.Voice = "aura-asteria"
	}
	return &DeepgramSynthesizer{
		settings:   s,
		httpClient: &http.Client{},
		player:     player,
		logger:     logging.NewComponentLogger(slog.Default(), "deepgram_speech"),
	}, nil
}

type speakPayload struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (d *DeepgramSynthesizer) Speak(ctx context.Context, sentence string) error {
	body, err := json.Marshal(speakPayload{Text: sentence, Voice: d.settings.Voice})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deepgramSpeakURL, bytes.NewReader(body))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSpeechSynthesize)
	}
	req.Header.Set("Authorization", "Token "+d.settings.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/x-raw;encoding=linear16;rate=16000;channels=1")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSpeechSynthesize)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errorsx.Wrapf(errorsx.ReasonSpeechSynthesize,
			"deepgram speak: status=%d body=%s", resp.StatusCode, string(b))
	}
	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSpeechSynthesize)
	}

	d.logger.Debug("speak_audio", "bytes", len(pcm))
	if err := d.player.Play(ctx, pcm); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSpeechPlayback)
	}
	return nil
}
