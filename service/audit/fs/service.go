// Package fs persists audit events as JSON files, one file per event,
// grouped by instance id. Any afs-supported scheme works as the base URL.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/modflow/modflow/internal/idgen"
	"github.com/modflow/modflow/service/audit"
)

// Service writes audit events under a base URL.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.Mutex
}

// New creates a file-backed audit sink.
func New(baseURL string) *Service {
	return &Service{
		baseURL: url.Normalize(baseURL, file.Scheme),
		fs:      afs.New(),
	}
}

// Log writes the event as a JSON file.
func (s *Service) Log(ctx context.Context, event *audit.Event) error {
	if event == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = idgen.New()
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	instance := event.InstanceID
	if instance == "" {
		instance = "global"
	}
	eventURL := url.Join(s.baseURL, instance, event.ID+".json")
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Upload(ctx, eventURL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write audit event to %s: %w", eventURL, err)
	}
	return nil
}

var _ audit.Service = (*Service)(nil)
