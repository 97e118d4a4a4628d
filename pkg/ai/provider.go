// Package ai provides the text-generation capability used to augment memos.
//
// Every backend is reduced to a Completer (one prompt in, one text out). The
// shared provider type owns the prompts, the output parsing and the retry policy,
// so backends differ only in how they build and send a request.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/memosync/pkg/core"
)

// Provider is the augmentation capability.
type Provider interface {
	// Summarize returns a short summary in the target language. An empty string
	// means no summary was produced.
	Summarize(ctx context.Context, text, language string) (string, error)
	// ExtractTags returns bare tags (no leading '#') in the order they were produced.
	ExtractTags(ctx context.Context, text string) ([]string, error)
	// ComposeDigest returns a multi-paragraph digest of the given texts.
	ComposeDigest(ctx context.Context, texts []string) (string, error)
}

// Completer sends a single prompt to a text-generation backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects and configures a backend.
type Config struct {
	Enabled    bool
	Backend    string
	APIKey     string
	Model      string
	BaseURL    string
	RetryDelay time.Duration
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Noop is used when augmentation is disabled. All operations return empty values.
type Noop struct{}

func (Noop) Summarize(context.Context, string, string) (string, error) { return "", nil }

func (Noop) ExtractTags(context.Context, string) ([]string, error) { return nil, nil }

func (Noop) ComposeDigest(context.Context, []string) (string, error) { return "", nil }

// factory builds the Completer of one backend after its credentials were checked.
type factory struct {
	validate func(cfg Config) error
	build    func(cfg Config) (Completer, error)
}

var backends = map[string]factory{
	BackendClaude: {validate: validateClaude, build: newClaude},
	BackendOpenAI: {validate: validateOpenAI, build: newOpenAI},
	BackendGemini: {validate: validateGemini, build: newGemini},
	BackendOllama: {validate: validateOllama, build: newOllama},
}

// Backends returns the names of the supported backends.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the Provider selected by cfg.Backend. Disabled augmentation or the
// "none" backend yields Noop. Missing or malformed credentials fail here with
// core.ErrConfiguration, before the first call.
func New(cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if !cfg.Enabled || name == "" || name == BackendNone {
		return Noop{}, nil
	}

	f, ok := backends[name]
	if !ok {
		return nil, core.ConfigError("unsupported AI backend %q (supported: %s)", cfg.Backend, strings.Join(Backends(), ", "))
	}
	if err := f.validate(cfg); err != nil {
		return nil, err
	}
	c, err := f.build(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s backend: %w", core.ErrConfiguration, name, err)
	}
	return NewProvider(c, Retry{BaseDelay: cfg.RetryDelay}, cfg.Logger), nil
}

// provider implements Provider on top of any Completer.
type provider struct {
	completer Completer
	retry     Retry
	logger    *slog.Logger
}

// NewProvider wraps a Completer with prompts and the retry policy.
func NewProvider(c Completer, retry Retry, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &provider{completer: c, retry: retry, logger: logger}
}

func (p *provider) complete(ctx context.Context, op, prompt string) (string, error) {
	var out string
	err := p.retry.Do(ctx, p.logger.With("op", op), func(ctx context.Context) error {
		var err error
		out, err = p.completer.Complete(ctx, prompt)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrAIProvider, op, err)
	}
	return strings.TrimSpace(out), nil
}

func (p *provider) Summarize(ctx context.Context, text, language string) (string, error) {
	return p.complete(ctx, "summarize", summaryPrompt(text, language))
}

func (p *provider) ExtractTags(ctx context.Context, text string) ([]string, error) {
	out, err := p.complete(ctx, "tags", tagsPrompt(text))
	if err != nil {
		return nil, err
	}
	return ParseTags(out), nil
}

func (p *provider) ComposeDigest(ctx context.Context, texts []string) (string, error) {
	if len(texts) == 0 {
		return "", nil
	}
	return p.complete(ctx, "digest", digestPrompt(texts))
}

// ParseTags splits model output into bare tags: separators are commas, whitespace
// and newlines; leading '#' and list bullets are dropped; duplicates keep the first position.
func ParseTags(out string) []string {
	fields := strings.FieldsFunc(out, func(r rune) bool {
		return r == ',' || r == '，' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})

	seen := make(map[string]bool)
	var tags []string
	for _, f := range fields {
		tag := strings.Trim(f, "#-*•.\"'`[]")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}
