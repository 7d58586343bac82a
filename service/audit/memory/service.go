// Package memory provides an in-memory audit sink, used by default and in
// tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/modflow/modflow/internal/idgen"
	"github.com/modflow/modflow/service/audit"
)

// Service collects audit events in memory.
type Service struct {
	mu     sync.RWMutex
	events []*audit.Event
}

// New creates an in-memory audit sink.
func New() *Service {
	return &Service{}
}

// Log appends an event, filling in a missing id and timestamp.
func (s *Service) Log(_ context.Context, event *audit.Event) error {
	if event == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = idgen.New()
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns a copy of the recorded events, optionally filtered by
// instance id.
func (s *Service) List(instanceID string) []*audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*audit.Event, 0, len(s.events))
	for _, event := range s.events {
		if instanceID != "" && event.InstanceID != instanceID {
			continue
		}
		result = append(result, event)
	}
	return result
}

var _ audit.Service = (*Service)(nil)
