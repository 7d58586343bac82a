// Package execbridge provides a module that runs shell commands on the
// local host, bridging workflows to external command line tooling.
package execbridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modflow/modflow/model/types"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
)

const id = "exec-bridge"

const defaultCommandTimeout = time.Minute

// Module executes shell commands via a local shell session.
type Module struct {
	mux     sync.Mutex
	session *gosh.Service
	env     map[string]string
}

// New creates an exec bridge module with an optional environment.
func New(env map[string]string) *Module {
	return &Module{env: env}
}

// Descriptor returns the module descriptor.
func (m *Module) Descriptor() *types.Descriptor {
	return &types.Descriptor{
		ID:         id,
		Name:       "Command Bridge",
		Version:    "1.0.0",
		Capability: types.CapabilityIntegration,
		Config:     &types.Config{Enabled: true, Priority: 100},
	}
}

// Init opens the local shell session.
func (m *Module) Init(ctx context.Context) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.session != nil {
		return nil
	}
	var envOptions []runner.Option
	if len(m.env) > 0 {
		envOptions = append(envOptions, runner.WithEnvironment(m.env))
	}
	session, err := gosh.New(ctx, local.New(envOptions...))
	if err != nil {
		return fmt.Errorf("failed to open shell session: %w", err)
	}
	m.session = session
	return nil
}

// Execute runs the "commands" input sequentially, stopping at the first
// failing command. Inputs: commands ([]string or string), timeoutMs (int),
// directory (string).
func (m *Module) Execute(ctx context.Context, invocation *types.Invocation) (*types.Result, error) {
	m.mux.Lock()
	session := m.session
	m.mux.Unlock()
	if session == nil {
		return nil, fmt.Errorf("module %v not initialized", id)
	}

	commands, err := commandsInput(invocation)
	if err != nil {
		return nil, err
	}
	timeout := defaultCommandTimeout
	if raw, ok := invocation.Input("timeoutMs"); ok {
		if ms, ok := raw.(int); ok && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if directory, ok := invocation.Input("directory"); ok {
		if dir, ok := directory.(string); ok && dir != "" {
			if _, _, err := session.Run(ctx, fmt.Sprintf("cd %s", dir)); err != nil {
				return nil, fmt.Errorf("failed to change directory: %w", err)
			}
		}
	}

	result := types.NewResult(id)
	var combined strings.Builder
	lastStatus := 0
	for _, command := range commands {
		stdout, status, err := session.Run(ctx, command, runner.WithTimeout(int(timeout.Milliseconds())))
		if stdout != "" {
			combined.WriteString(stdout)
			combined.WriteString("\n")
		}
		lastStatus = status
		if err != nil {
			result.Status = types.ResultError
			result.Errors = append(result.Errors, fmt.Sprintf("command %q: %v", command, err))
			break
		}
		if status != 0 {
			result.Status = types.ResultError
			result.Errors = append(result.Errors, fmt.Sprintf("command %q exited with %d", command, status))
			break
		}
	}
	result.Payload["stdout"] = strings.TrimSpace(combined.String())
	result.Payload["status"] = lastStatus
	return result, nil
}

// Destroy closes the shell session.
func (m *Module) Destroy(ctx context.Context) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	return err
}

func commandsInput(invocation *types.Invocation) ([]string, error) {
	raw, ok := invocation.Input("commands")
	if !ok {
		return nil, fmt.Errorf("missing commands input")
	}
	switch value := raw.(type) {
	case string:
		return []string{value}, nil
	case []string:
		return value, nil
	case []interface{}:
		commands := make([]string, 0, len(value))
		for _, item := range value {
			command, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("command must be a string, got %T", item)
			}
			commands = append(commands, command)
		}
		return commands, nil
	}
	return nil, fmt.Errorf("unsupported commands input type %T", raw)
}
