package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vokal-ai/vokal/pkg/configutil"
	"github.com/vokal-ai/vokal/pkg/errorsx"
	"github.com/vokal-ai/vokal/pkg/logging"
)

// SSESettings configures the server-sent-events agent client.
type SSESettings struct {
	Endpoint  string `mapstructure:"endpoint"`
	APIKey    string `mapstructure:"api_key"`
	SessionID string `mapstructure:"session_id"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

var sseSchema = configutil.Schema{
	Required: []string{"endpoint"},
	Optional: []string{"api_key", "session_id", "timeout_ms"},
}

// SSEClient submits user text with an HTTP POST and reads the reply as a
// line-prefixed `data: <JSON>` event stream. Malformed lines are skipped;
// the stream ends at the explicit done marker or transport close.
type SSEClient struct {
	settings   SSESettings
	httpClient *http.Client
	logger     *slog.Logger
}

func NewSSEClient(settings map[string]any) (*SSEClient, error) {
	if err := configutil.ValidateSettings(settings, sseSchema); err != nil {
		return nil, fmt.Errorf("sse agent settings: %w", err)
	}
	var s SSESettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("sse agent settings: %w", err)
	}
	if s.TimeoutMS <= 0 {
		s.TimeoutMS = 120000
	}
	return &SSEClient{
		settings: s,
		// No client-level timeout: the stream stays open for the whole
		// reply. The per-turn context bounds it instead.
		httpClient: &http.Client{},
		logger:     logging.NewComponentLogger(slog.Default(), "agent_sse"),
	}, nil
}

type sseTurnRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"sessionId,omitempty"`
}

func (c *SSEClient) OpenTurn(ctx context.Context, userText string) (<-chan []byte, error) {
	turnCtx, cancel := context.WithTimeout(ctx, time.Duration(c.settings.TimeoutMS)*time.Millisecond)

	body, _ := json.Marshal(sseTurnRequest{Text: userText, SessionID: c.settings.SessionID})
	req, err := http.NewRequestWithContext(turnCtx, http.MethodPost, c.settings.Endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, errorsx.Wrap(err, errorsx.ReasonAgentConnect)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.settings.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, errorsx.Wrap(err, errorsx.ReasonAgentConnect)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, errorsx.Wrapf(errorsx.ReasonAgentConnect,
			"agent error: status=%d body=%s", resp.StatusCode, string(b))
	}

	events := make(chan []byte, 16)
	go func() {
		defer cancel()
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}
			select {
			case events <- []byte(payload):
			case <-turnCtx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && turnCtx.Err() == nil {
			// Connection drop truncates the reply; the reader flushes
			// whatever it buffered.
			c.logger.Warn("agent_stream_error",
				"reason_code", string(errorsx.ReasonAgentStream), "error", err.Error())
		}
	}()
	return events, nil
}
