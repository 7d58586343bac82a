// Package nop provides a module that does nothing, useful as a placeholder
// step and in tests.
package nop

import (
	"context"

	"github.com/modflow/modflow/model/types"
)

const id = "nop"

// Module performs no operation and returns immediately.
type Module struct{}

// New creates a nop module.
func New() *Module {
	return &Module{}
}

// Descriptor returns the module descriptor.
func (m *Module) Descriptor() *types.Descriptor {
	return &types.Descriptor{
		ID:         id,
		Name:       "No Operation",
		Version:    "1.0.0",
		Capability: types.CapabilityIntegration,
		Config:     &types.Config{Enabled: true},
	}
}

func (m *Module) Init(ctx context.Context) error { return nil }

func (m *Module) Execute(ctx context.Context, invocation *types.Invocation) (*types.Result, error) {
	return types.NewResult(id), nil
}

func (m *Module) Destroy(ctx context.Context) error { return nil }
