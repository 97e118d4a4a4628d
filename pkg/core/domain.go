// Memo is the central entity of the domain.
package core

import (
	"strings"
	"time"
)

// Visibility is the access level a memo has on the remote server.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityProtected Visibility = "PROTECTED"
	VisibilityPrivate   Visibility = "PRIVATE"
)

// Memo is one unit of remote content.
// Name is the stable remote identifier (e.g. "memos/123"); it is both the
// pagination key on the server and the marker written into local documents.
type Memo struct {
	Name       string
	Content    string
	Visibility Visibility
	CreateTime time.Time
	UpdateTime time.Time
	Pinned     bool
	Resources  []Resource
}

// Resource is a binary attachment owned by a Memo.
type Resource struct {
	Name     string // e.g. "resources/42"
	Filename string
	Type     string
	Size     int64
}

// ID returns the last path segment of the resource name.
func (r Resource) ID() string {
	if i := strings.LastIndex(r.Name, "/"); i >= 0 {
		return r.Name[i+1:]
	}
	return r.Name
}

// Outcome is the terminal state of a single memo within a sync pass.
type Outcome string

const (
	OutcomeSkipped       Outcome = "skipped"
	OutcomePersisted     Outcome = "persisted"
	OutcomeUpdated       Outcome = "updated"
	OutcomeFailedPersist Outcome = "failed"
)

// Report summarizes one sync pass.
type Report struct {
	RunID      string
	Fetched    int
	Persisted  int
	Updated    int
	Skipped    int
	Failed     int
	Errors     []error
	DigestPath string
	Duration   time.Duration
}

// Record adds a memo outcome to the counters.
func (r *Report) Record(o Outcome) {
	switch o {
	case OutcomeSkipped:
		r.Skipped++
	case OutcomePersisted:
		r.Persisted++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeFailedPersist:
		r.Failed++
	}
}

// Level classifies a user-facing status notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// EventType represents the kind of local change observed in the document tree.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event is a change to a document under the sync root made outside of a pass.
type Event struct {
	Type      EventType
	Path      string // relative to the sync root, slash separated
	Timestamp int64  // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.Path
}
