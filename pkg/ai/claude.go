package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aretw0/memosync/pkg/core"
)

const (
	BackendNone   = "none"
	BackendClaude = "claude"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
	BackendOllama = "ollama"

	defaultClaudeModel = "claude-3-5-haiku-latest"
	claudeMaxTokens    = 1024
)

func validateClaude(cfg Config) error {
	if cfg.APIKey == "" {
		return core.ConfigError("claude backend requires an API key")
	}
	if !strings.HasPrefix(cfg.APIKey, "sk-ant-") {
		return core.ConfigError("claude API key must start with sk-ant-")
	}
	return nil
}

type claudeCompleter struct {
	client anthropic.Client
	model  string
}

func newClaude(cfg Config) (Completer, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are owned by Retry so every backend backs off the same way.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	return &claudeCompleter{client: anthropic.NewClient(opts...), model: model}, nil
}

func (c *claudeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: claudeMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Backend: BackendClaude, StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("claude request failed: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
