package core

import (
	"time"

	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Running       bool       `json:"running"`
	Passes        int        `json:"passes"`
	Limit         int        `json:"limit"`
	UpdateChanged bool       `json:"update_changed"`
	WeeklyDigest  bool       `json:"weekly_digest"`
	StoreType     string     `json:"store_type"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	LastRunID     string     `json:"last_run_id,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storeType := "unknown"
	if comp, ok := s.cfg.Store.(introspection.Component); ok {
		storeType = comp.ComponentType()
	}

	state := ServiceState{
		Running:       s.running.Load(),
		Passes:        s.passes,
		Limit:         s.cfg.Limit,
		UpdateChanged: s.cfg.UpdateChanged,
		WeeklyDigest:  s.cfg.WeeklyDigest,
		StoreType:     storeType,
	}
	if s.last != nil {
		t := s.lastTime
		state.LastRun = &t
		state.LastRunID = s.last.RunID
	}
	if s.lastErr != nil {
		state.LastError = s.lastErr.Error()
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "sync-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
