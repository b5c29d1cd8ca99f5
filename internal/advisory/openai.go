package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible gateways
	Model   string
	Timeout time.Duration
}

// OpenAIAdvisor implements Advisor with a chat completion call.
type OpenAIAdvisor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ Advisor = (*OpenAIAdvisor)(nil)

func NewOpenAIAdvisor(cfg OpenAIConfig) (*OpenAIAdvisor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIAdvisor{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (a *OpenAIAdvisor) Advise(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		Temperature: 0.4,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Advisory request failed", "model", a.model, "error", err)
		return Response{}, &UpstreamError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return Response{}, &UpstreamError{Err: errors.New("empty completion")}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Response{}, &UpstreamError{Err: fmt.Errorf("empty recommendations (finish reason %q)", resp.Choices[0].FinishReason)}
	}

	slog.InfoContext(ctx, "Advisory recommendations received",
		"model", a.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens)
	return Response{Recommendations: text}, nil
}
