// Package content decides which memos deserve augmentation and assembles the
// augmented body and the weekly digest.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/memosync/pkg/ai"
	"github.com/aretw0/memosync/pkg/core"
)

// Config toggles the augmentation features.
type Config struct {
	Enabled  bool
	Summary  bool
	Tags     bool
	Language string
	// Location is used for ISO week grouping and digest dates. Defaults to time.Local.
	Location *time.Location
	// DigestWeeks caps the digest to the newest weeks. Zero keeps every week.
	DigestWeeks int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Transformer implements core.Transformer on top of an ai.Provider.
type Transformer struct {
	provider ai.Provider
	cfg      Config
	logger   *slog.Logger
}

var _ core.Transformer = (*Transformer)(nil)

// New creates a Transformer. A nil provider is treated as ai.Noop.
func New(provider ai.Provider, cfg Config) *Transformer {
	if provider == nil {
		provider = ai.Noop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transformer{provider: provider, cfg: cfg, logger: logger}
}

// Process returns the memo content followed by the enabled AI callouts.
// Provider failures are logged and the corresponding callout is left out.
func (t *Transformer) Process(ctx context.Context, m core.Memo) string {
	if !t.cfg.Enabled || (!t.cfg.Summary && !t.cfg.Tags) || !Eligible(m.Content) {
		return m.Content
	}

	title, body, hasTitle := SplitTitle(m.Content)
	logger := t.logger.With("memo", m.Name)

	var blocks []string
	if t.cfg.Summary {
		summary, err := t.provider.Summarize(ctx, body, t.cfg.Language)
		switch {
		case err != nil:
			logger.Warn("summary skipped", "error", err)
		case summary != "":
			blocks = append(blocks, callout("abstract", "AI Summary", summary))
		}
	}
	if t.cfg.Tags {
		tags, err := t.provider.ExtractTags(ctx, body)
		switch {
		case err != nil:
			logger.Warn("tags skipped", "error", err)
		case len(tags) > 0:
			blocks = append(blocks, callout("tip", "AI Tags", hashTags(tags)))
		}
	}

	if len(blocks) == 0 {
		return m.Content
	}

	var b strings.Builder
	if hasTitle {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	b.WriteString(strings.TrimRight(body, "\n"))
	for _, block := range blocks {
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	return b.String()
}

// callout renders a collapsed callout block.
func callout(kind, heading, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "> [!%s]- %s", kind, heading)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		b.WriteString("\n> ")
		b.WriteString(strings.TrimRight(line, " \r"))
	}
	return b.String()
}

func hashTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, "#"+strings.ReplaceAll(tag, " ", "-"))
	}
	return strings.Join(out, " ")
}
