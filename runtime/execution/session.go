package execution

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/modflow/modflow/extension"
	"github.com/viant/structology/conv"
)

// Session holds the mutable data of a running instance: the workflow
// context, per-step outputs and the shared namespace.
type Session struct {
	ID          string                 `json:"id"`
	StudyID     string                 `json:"studyId,omitempty"`
	UserID      string                 `json:"userId,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	StepOutputs map[string]map[string]interface{} `json:"stepOutputs,omitempty"`
	Shared      map[string]interface{} `json:"shared,omitempty"`

	types     *extension.Types
	converter *conv.Converter
	mu        sync.RWMutex
}

// Option customizes a session.
type Option func(*Session)

// WithContext seeds the workflow context.
func WithContext(values map[string]interface{}) Option {
	return func(s *Session) {
		for k, v := range values {
			s.Context[k] = v
		}
	}
}

// WithTypes sets the data type registry used for input coercion.
func WithTypes(types *extension.Types) Option {
	return func(s *Session) {
		s.types = types
	}
}

// WithConverter sets the value converter.
func WithConverter(converter *conv.Converter) Option {
	return func(s *Session) {
		s.converter = converter
	}
}

// NewSession creates a session.
func NewSession(id string, options ...Option) *Session {
	ret := &Session{
		ID:          id,
		Context:     make(map[string]interface{}),
		StepOutputs: make(map[string]map[string]interface{}),
		Shared:      make(map[string]interface{}),
	}
	for _, option := range options {
		option(ret)
	}
	if studyID, ok := ret.Context["studyId"].(string); ok {
		ret.StudyID = studyID
	}
	if userID, ok := ret.Context["userId"].(string); ok {
		ret.UserID = userID
	}
	if env, ok := ret.Context["environment"].(string); ok {
		ret.Environment = env
	}
	return ret
}

// Get returns a workflow context value.
func (s *Session) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.Context[key]
	return value, ok
}

// Set writes a workflow context value.
func (s *Session) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context[key] = value
}

// Snapshot returns a copy of the workflow context.
func (s *Session) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]interface{}, len(s.Context))
	for k, v := range s.Context {
		result[k] = v
	}
	return result
}

// SetStepOutput records an output value published by a step.
func (s *Session) SetStepOutput(stepID, key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outputs, ok := s.StepOutputs[stepID]
	if !ok {
		outputs = make(map[string]interface{})
		s.StepOutputs[stepID] = outputs
	}
	outputs[key] = value
}

// StepOutput resolves a "stepId.field" reference; a bare step id returns the
// whole output map.
func (s *Session) StepOutput(ref string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stepID, field := ref, ""
	if idx := strings.Index(ref, "."); idx != -1 {
		stepID, field = ref[:idx], ref[idx+1:]
	}
	outputs, ok := s.StepOutputs[stepID]
	if !ok {
		return nil, false
	}
	if field == "" {
		return outputs, true
	}
	value, ok := outputs[field]
	return value, ok
}

// StepOutputsSnapshot returns a shallow copy of all step outputs.
func (s *Session) StepOutputsSnapshot() map[string]map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]map[string]interface{}, len(s.StepOutputs))
	for stepID, outputs := range s.StepOutputs {
		copied := make(map[string]interface{}, len(outputs))
		for k, v := range outputs {
			copied[k] = v
		}
		result[stepID] = copied
	}
	return result
}

// SharedSnapshot returns a copy of the shared namespace.
func (s *Session) SharedSnapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]interface{}, len(s.Shared))
	for k, v := range s.Shared {
		result[k] = v
	}
	return result
}

// GetShared returns a shared namespace value.
func (s *Session) GetShared(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.Shared[key]
	return value, ok
}

// SetShared writes a shared namespace value.
func (s *Session) SetShared(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Shared[key] = value
}

// TypedValue coerces a value to the named data type. An empty data type
// returns the value unchanged.
func (s *Session) TypedValue(dataType string, value interface{}) (interface{}, error) {
	if dataType == "" || s.types == nil {
		return value, nil
	}
	aType := s.types.Lookup(dataType)
	if aType == nil {
		return nil, fmt.Errorf("type %v not registered", dataType)
	}
	return s.convert(aType.Type, value)
}

func (s *Session) convert(aType reflect.Type, value interface{}) (interface{}, error) {
	if aType.Kind() == reflect.Interface {
		return value, nil
	}
	s.mu.Lock()
	if s.converter == nil {
		s.converter = conv.NewConverter(conv.DefaultOptions())
	}
	converter := s.converter
	s.mu.Unlock()
	instance := newInstancePtr(aType)
	err := converter.Convert(value, instance)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(instance).Elem().Interface(), nil
}

// newInstancePtr creates a new instance pointer of the given type.
func newInstancePtr(t reflect.Type) interface{} {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}
