package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vokal-ai/vokal/pkg/configutil"
	"github.com/vokal-ai/vokal/pkg/errorsx"
	"github.com/vokal-ai/vokal/pkg/logging"
)

// OpenAISettings configures the OpenAI-backed agent.
type OpenAISettings struct {
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	BaseURL      string `mapstructure:"base_url"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

var openAISchema = configutil.Schema{
	Required: []string{"api_key"},
	Optional: []string{"model", "base_url", "system_prompt"},
}

// OpenAIAgent streams chat-completion deltas and republishes them as the
// same event payload shape the SSE feed uses, so the stream reader needs no
// knowledge of which upstream produced them.
type OpenAIAgent struct {
	settings OpenAISettings
	client   *openai.Client
	logger   *slog.Logger
}

func NewOpenAIAgent(settings map[string]any) (*OpenAIAgent, error) {
	if err := configutil.ValidateSettings(settings, openAISchema); err != nil {
		return nil, fmt.Errorf("openai agent settings: %w", err)
	}
	var s OpenAISettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("openai agent settings: %w", err)
	}
	if s.Model == "" {
		s.Model = openai.GPT4oMini
	}
	if s.SystemPrompt == "" {
		s.SystemPrompt = "You are a helpful, concise voice assistant. Answer clearly and briefly."
	}
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return &OpenAIAgent{
		settings: s,
		client:   openai.NewClientWithConfig(cfg),
		logger:   logging.NewComponentLogger(slog.Default(), "agent_openai"),
	}, nil
}

type openAIEvent struct {
	Message openAIEventMessage `json:"message"`
}

type openAIEventMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (a *OpenAIAgent) OpenTurn(ctx context.Context, userText string) (<-chan []byte, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: a.settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.settings.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
		Stream: true,
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonAgentConnect)
	}

	events := make(chan []byte, 16)
	go func() {
		defer close(events)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn("agent_stream_error",
						"reason_code", string(errorsx.ReasonAgentStream), "error", err.Error())
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			payload, err := json.Marshal(openAIEvent{
				Message: openAIEventMessage{Type: "TextChunk", Text: delta},
			})
			if err != nil {
				continue
			}
			select {
			case events <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
