// Package textract provides a module that pulls structured fields out of
// free-form document text using named regular expression patterns.
package textract

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/modflow/modflow/model/types"
	"github.com/modflow/modflow/service/registry"
)

const id = "text-extract"

// Module extracts named fields from document text.
type Module struct {
	mux      sync.RWMutex
	compiled map[string]*regexp.Regexp
	// patterns configured at registration, merged with per-invocation ones
	patterns map[string]string
}

// New creates a text extraction module with optional default patterns.
func New(patterns map[string]string) *Module {
	return &Module{patterns: patterns}
}

// Descriptor returns the module descriptor.
func (m *Module) Descriptor() *types.Descriptor {
	return &types.Descriptor{
		ID:         id,
		Name:       "Text Extraction",
		Version:    "1.0.0",
		Capability: types.CapabilityExtraction,
		Config:     &types.Config{Enabled: true, Priority: 10},
	}
}

// Init compiles the configured patterns.
func (m *Module) Init(ctx context.Context) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.compiled = make(map[string]*regexp.Regexp, len(m.patterns))
	for name, pattern := range m.patterns {
		expr, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", name, err)
		}
		m.compiled[name] = expr
	}
	return nil
}

// Execute extracts fields from the "text" input, or from a document read
// through the shared document store when only "documentURL" is supplied.
// Per-invocation patterns arrive in the "patterns" input as
// map[string]string; a pattern's first capture group wins, otherwise the
// whole match.
func (m *Module) Execute(ctx context.Context, invocation *types.Invocation) (*types.Result, error) {
	text, err := m.documentText(ctx, invocation)
	if err != nil {
		return nil, err
	}

	patterns, err := m.invocationPatterns(invocation)
	if err != nil {
		return nil, err
	}

	result := types.NewResult(id)
	matched := 0
	for name, expr := range patterns {
		groups := expr.FindStringSubmatch(text)
		if groups == nil {
			result.AddWarning(fmt.Sprintf("pattern %q matched nothing", name))
			continue
		}
		value := groups[0]
		if len(groups) > 1 {
			value = groups[1]
		}
		result.Payload[name] = value
		matched++
	}
	result.Metrics = &types.Metrics{Counters: map[string]int64{
		"patterns": int64(len(patterns)),
		"matched":  int64(matched),
	}}
	return result, nil
}

// documentText resolves the document text, preferring the inline "text"
// input over a "documentURL" read from the context service bundle.
func (m *Module) documentText(ctx context.Context, invocation *types.Invocation) (string, error) {
	if raw, ok := invocation.Input("text"); ok {
		text, isString := raw.(string)
		if !isString {
			return "", fmt.Errorf("text input must be a string, got %T", raw)
		}
		return text, nil
	}
	raw, ok := invocation.Input("documentURL")
	if !ok {
		return "", fmt.Errorf("missing text input")
	}
	URL, isString := raw.(string)
	if !isString {
		return "", fmt.Errorf("documentURL input must be a string, got %T", raw)
	}
	services := registry.FromContext(ctx)
	if services == nil || services.Documents == nil {
		return "", fmt.Errorf("documentURL input needs a document store")
	}
	data, err := services.Documents.Read(ctx, URL)
	if err != nil {
		return "", fmt.Errorf("failed to read document %v: %w", URL, err)
	}
	return string(data), nil
}

func (m *Module) Destroy(ctx context.Context) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.compiled = nil
	return nil
}

func (m *Module) invocationPatterns(invocation *types.Invocation) (map[string]*regexp.Regexp, error) {
	m.mux.RLock()
	patterns := make(map[string]*regexp.Regexp, len(m.compiled))
	for name, expr := range m.compiled {
		patterns[name] = expr
	}
	m.mux.RUnlock()

	raw, ok := invocation.Input("patterns")
	if !ok {
		return patterns, nil
	}
	extra, ok := raw.(map[string]string)
	if !ok {
		anyMap, isAny := raw.(map[string]interface{})
		if !isAny {
			return nil, fmt.Errorf("patterns input must be a string map, got %T", raw)
		}
		extra = make(map[string]string, len(anyMap))
		for name, value := range anyMap {
			pattern, isString := value.(string)
			if !isString {
				return nil, fmt.Errorf("pattern %q must be a string, got %T", name, value)
			}
			extra[name] = pattern
		}
	}
	for name, pattern := range extra {
		expr, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", name, err)
		}
		patterns[name] = expr
	}
	return patterns, nil
}
