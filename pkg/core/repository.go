package core

import (
	"context"
	"time"
)

// Source defines the contract for reading memos from the remote service.
type Source interface {
	// FetchAll returns at most limit memos, newest first by CreateTime.
	FetchAll(ctx context.Context, limit int) ([]Memo, error)
}

// ResourceFetcher downloads the binary payload of a single attachment.
type ResourceFetcher interface {
	Download(ctx context.Context, r Resource) ([]byte, error)
}

// Entry describes a memo already materialized in the store.
type Entry struct {
	Path      string
	UpdatedAt time.Time
}

// Store defines the contract for the local document tree.
// It is the only component that writes files.
type Store interface {
	// Initialize ensures the underlying storage is ready (e.g., create directories, load the index).
	Initialize(ctx context.Context) error

	// Exists reports whether a document carrying the memo's marker is present.
	Exists(ctx context.Context, memoName string) (bool, error)

	// Lookup returns the indexed entry for a memo.
	Lookup(ctx context.Context, memoName string) (Entry, bool, error)

	// Write renders and persists a memo with the given (possibly augmented) body.
	// It returns the path of the written document.
	Write(ctx context.Context, m Memo, body string) (string, error)

	// WriteDigest persists a weekly digest document.
	WriteDigest(ctx context.Context, body string, at time.Time) (string, error)
}

// Transformer turns a memo into the body that will be persisted.
type Transformer interface {
	// Process returns the memo content, optionally augmented. It never fails:
	// augmentation errors degrade to the original content.
	Process(ctx context.Context, m Memo) string

	// WeeklyDigest composes one section per ISO week. Weeks reports how many sections
	// were rendered; zero means Body is a placeholder that should not be persisted.
	WeeklyDigest(ctx context.Context, memos []Memo) Digest
}

// Digest is the result of a weekly digest composition.
type Digest struct {
	Body  string
	Weeks int
	Memos int
}

// Notifier receives user-facing status notifications (start, progress, completion, failure).
type Notifier interface {
	Notify(level Level, msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, msg string)

func (f NotifierFunc) Notify(level Level, msg string) { f(level, msg) }

// Recorder observes sync activity (e.g. metrics).
type Recorder interface {
	ObserveOutcome(o Outcome)
	ObservePass(r Report, err error)
}
