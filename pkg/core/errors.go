package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrConfiguration is returned before any network call when settings are missing or malformed.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrTransport covers non-2xx responses and network failures of the memos API.
	ErrTransport = errors.New("transport error")
	// ErrUnreachable is a transport error raised when the server cannot be contacted at all.
	ErrUnreachable = fmt.Errorf("%w: server unreachable", ErrTransport)
	// ErrSchema is returned when a response body cannot be parsed or lacks required fields.
	ErrSchema = errors.New("invalid response")
	// ErrAttachment marks a single failed resource download. It never aborts a pass.
	ErrAttachment = errors.New("attachment download failed")
	// ErrAIProvider is returned by AI providers once the retry budget is exhausted.
	ErrAIProvider = errors.New("ai provider error")
	// ErrPersist marks a failed document write.
	ErrPersist = errors.New("persist error")
	// ErrSyncInProgress is returned when a pass is requested while another one is running.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// HTTPError is a non-2xx response from the memos API.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrTransport }

// SchemaError is a response body that could not be used.
type SchemaError struct {
	Reason string
	Body   string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := "invalid response: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSchema}
	}
	return []error{ErrSchema, e.Err}
}

// ConfigError builds an ErrConfiguration with a reason.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
