// Package memosync is the composition root of the Memos synchronizer.
//
// It mirrors the memos of a self-hosted Memos server into a tree of Markdown
// documents, one file per memo, organized by year and month. Each pass fetches
// the latest memos, skips those already materialized, optionally augments the
// rest with an AI summary and tags, and writes them with their attachments.
//
// The core orchestration lives in pkg/core and knows nothing about HTTP or the
// filesystem; adapters under pkg/adapters provide the Memos client, the document
// store and the background workers.
//
// Usage:
//
//	cfg, _, err := memosync.LoadConfig(memosync.LoadOptions{})
//	app, err := memosync.New(cfg, memosync.WithLogger(logger))
//	report, err := app.Service.Sync(ctx)
package memosync
