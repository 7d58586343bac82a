// Package redline provides a module that compares two document revisions
// and reports a unified diff with change statistics.
package redline

import (
	"context"
	"fmt"
	"strings"

	"github.com/modflow/modflow/model/types"
	"github.com/pmezard/go-difflib/difflib"
	sgdiff "github.com/sourcegraph/go-diff/diff"
)

const id = "redline"

const defaultContextLines = 3

// Module produces redlines between document revisions.
type Module struct{}

// New creates a redline module.
func New() *Module {
	return &Module{}
}

// Descriptor returns the module descriptor.
func (m *Module) Descriptor() *types.Descriptor {
	return &types.Descriptor{
		ID:         id,
		Name:       "Document Redline",
		Version:    "1.0.0",
		Capability: types.CapabilityCompliance,
		Config:     &types.Config{Enabled: true, Priority: 20},
	}
}

func (m *Module) Init(ctx context.Context) error { return nil }

// Execute diffs the "original" and "revised" inputs. The optional "label"
// input names the document in the diff header. The payload carries the
// unified diff, per-hunk counts and added/removed line totals.
func (m *Module) Execute(ctx context.Context, invocation *types.Invocation) (*types.Result, error) {
	original, err := stringInput(invocation, "original")
	if err != nil {
		return nil, err
	}
	revised, err := stringInput(invocation, "revised")
	if err != nil {
		return nil, err
	}
	label := "document"
	if raw, ok := invocation.Input("label"); ok {
		if value, isString := raw.(string); isString && value != "" {
			label = value
		}
	}

	result := types.NewResult(id)
	if original == revised {
		result.Payload["diff"] = ""
		result.Payload["changed"] = false
		result.Messages = append(result.Messages, "revisions are identical")
		return result, nil
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(revised),
		FromFile: label + " (original)",
		ToFile:   label + " (revised)",
		Context:  defaultContextLines,
	}
	patch, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %v: %w", label, err)
	}

	added, removed := 0, 0
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			added++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			removed++
		}
	}

	hunks := 0
	if fileDiff, err := sgdiff.ParseFileDiff([]byte(patch)); err == nil {
		hunks = len(fileDiff.Hunks)
	} else {
		result.AddWarning(fmt.Sprintf("diff stat parse failed: %v", err))
	}

	result.Payload["diff"] = patch
	result.Payload["changed"] = true
	result.Payload["added"] = added
	result.Payload["removed"] = removed
	result.Payload["hunks"] = hunks
	result.Metrics = &types.Metrics{Counters: map[string]int64{
		"linesAdded":   int64(added),
		"linesRemoved": int64(removed),
	}}
	if added+removed > 100 {
		result.Recommendations = append(result.Recommendations, "large revision, consider a section by section review")
	}
	return result, nil
}

func (m *Module) Destroy(ctx context.Context) error { return nil }

func stringInput(invocation *types.Invocation, name string) (string, error) {
	raw, ok := invocation.Input(name)
	if !ok {
		return "", fmt.Errorf("missing %v input", name)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%v input must be a string, got %T", name, raw)
	}
	return value, nil
}
