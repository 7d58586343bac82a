// Package workflow maintains the registry of workflow definitions and
// loads definitions from YAML documents.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/option"

	"github.com/modflow/modflow/model"
	"gopkg.in/yaml.v3"
)

var (
	// ErrWorkflowNotFound indicates an unknown workflow id.
	ErrWorkflowNotFound = errors.New("workflow not found")
	// ErrDuplicateWorkflow indicates a second registration under an existing id.
	ErrDuplicateWorkflow = errors.New("workflow already registered")
)

// Service is the workflow definition registry.
type Service struct {
	fs        afs.Service
	mu        sync.RWMutex
	workflows map[string]*model.Workflow
}

// New creates a workflow registry.
func New() *Service {
	return &Service{
		fs:        afs.New(),
		workflows: make(map[string]*model.Workflow),
	}
}

// Register stores a validated definition. Registering an existing id fails.
func (s *Service) Register(workflow *model.Workflow) error {
	if workflow == nil {
		return fmt.Errorf("workflow is nil")
	}
	if issues := workflow.Validate(); len(issues) > 0 {
		return fmt.Errorf("invalid workflow %v: %w", workflow.ID, issues[0])
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[workflow.ID]; ok {
		return fmt.Errorf("workflow %q: %w", workflow.ID, ErrDuplicateWorkflow)
	}
	s.workflows[workflow.ID] = workflow
	return nil
}

// Unregister removes a definition; unknown ids are ignored.
func (s *Service) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
}

// Workflow returns a definition by id.
func (s *Service) Workflow(id string) (*model.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workflow, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %q: %w", id, ErrWorkflowNotFound)
	}
	return workflow, nil
}

// List returns all registered definitions.
func (s *Service) List() []*model.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Workflow, 0, len(s.workflows))
	for _, workflow := range s.workflows {
		result = append(result, workflow)
	}
	return result
}

// DecodeYAML decodes a definition from YAML.
func (s *Service) DecodeYAML(encoded []byte) (*model.Workflow, error) {
	workflow := &model.Workflow{}
	if err := yaml.Unmarshal(encoded, workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

// Load reads, decodes and registers a definition from a URL. A missing
// extension defaults to .yaml; the file name supplies a missing id.
func (s *Service) Load(ctx context.Context, URL string) (*model.Workflow, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow from %s: %w", URL, err)
	}
	workflow, err := s.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow from %s: %w", URL, err)
	}
	workflow.Source = &model.Source{URL: URL}
	if workflow.ID == "" {
		base := filepath.Base(URL)
		workflow.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := s.Register(workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

// LoadAll loads every .yaml or .yml definition under baseURL recursively.
func (s *Service) LoadAll(ctx context.Context, baseURL string) ([]*model.Workflow, error) {
	objects, err := s.fs.List(ctx, baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows under %s: %w", baseURL, err)
	}
	var loaded []*model.Workflow
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		switch filepath.Ext(object.Name()) {
		case ".yaml", ".yml":
		default:
			continue
		}
		workflow, err := s.Load(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, workflow)
	}
	return loaded, nil
}
