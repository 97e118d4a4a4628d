package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/memosync/pkg/core"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel = "gemini-1.5-flash"
	defaultOllamaModel = "llama3"
)

// jsonBackend posts JSON requests for the backends that have no SDK dependency.
type jsonBackend struct {
	name   string
	client *http.Client
}

func newJSONBackend(name string, timeout time.Duration) jsonBackend {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return jsonBackend{name: name, client: &http.Client{Timeout: timeout}}
}

func (b jsonBackend) post(ctx context.Context, endpoint string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", b.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", b.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", b.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", b.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Backend: b.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: invalid response: %w", b.name, err)
	}
	return nil
}

// --- OpenAI (chat completions) ---

func validateOpenAI(cfg Config) error {
	if cfg.APIKey == "" {
		return core.ConfigError("openai backend requires an API key")
	}
	// Custom base URLs point at compatible servers whose keys have other shapes.
	if cfg.BaseURL == "" && !strings.HasPrefix(cfg.APIKey, "sk-") {
		return core.ConfigError("openai API key must start with sk-")
	}
	return nil
}

type openAICompleter struct {
	jsonBackend
	url   string
	key   string
	model string
}

func newOpenAI(cfg Config) (Completer, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAICompleter{
		jsonBackend: newJSONBackend(BackendOpenAI, cfg.Timeout),
		url:         base + "/chat/completions",
		key:         cfg.APIKey,
		model:       model,
	}, nil
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *openAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	in := map[string]any{
		"model":    c.model,
		"messages": []openAIMessage{{Role: "user", Content: prompt}},
	}
	var out struct {
		Choices []struct {
			Message openAIMessage `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, c.url, map[string]string{"Authorization": "Bearer " + c.key}, in, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// --- Gemini (generateContent) ---

func validateGemini(cfg Config) error {
	if cfg.APIKey == "" {
		return core.ConfigError("gemini backend requires an API key")
	}
	if len(cfg.APIKey) < 20 || strings.ContainsAny(cfg.APIKey, " \t\n") {
		return core.ConfigError("gemini API key looks malformed")
	}
	return nil
}

type geminiCompleter struct {
	jsonBackend
	url string
	key string
}

func newGemini(cfg Config) (Completer, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultGeminiURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiCompleter{
		jsonBackend: newJSONBackend(BackendGemini, cfg.Timeout),
		url:         fmt.Sprintf("%s/models/%s:generateContent", base, model),
		key:         cfg.APIKey,
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

func (c *geminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	in := map[string]any{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	var out struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	if err := c.post(ctx, c.url, map[string]string{"x-goog-api-key": c.key}, in, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini: response has no candidates")
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// --- Ollama (/api/generate) ---

func validateOllama(cfg Config) error {
	if cfg.BaseURL == "" {
		return core.ConfigError("ollama backend requires a base URL (e.g. http://localhost:11434)")
	}
	return nil
}

type ollamaCompleter struct {
	jsonBackend
	url   string
	key   string
	model string
}

func newOllama(cfg Config) (Completer, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	return &ollamaCompleter{
		jsonBackend: newJSONBackend(BackendOllama, cfg.Timeout),
		url:         strings.TrimRight(cfg.BaseURL, "/") + "/api/generate",
		key:         cfg.APIKey,
		model:       model,
	}, nil
}

func (c *ollamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	in := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}
	headers := map[string]string{}
	if c.key != "" {
		headers["Authorization"] = "Bearer " + c.key
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, c.url, headers, in, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}
