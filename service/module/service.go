// Package module maintains the registry of study modules and drives their
// lifecycle: registration, initialization, guarded execution and teardown.
package module

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/modflow/modflow/model/types"
	"github.com/modflow/modflow/policy"
	"github.com/modflow/modflow/tracing"
)

const defaultExecuteTimeout = 30 * time.Second

// Registration couples a module descriptor with its handler.
type Registration struct {
	Descriptor *types.Descriptor
	Handler    types.Handler
}

// Manager owns module registrations and their lifecycle.
type Manager struct {
	mu             sync.RWMutex
	modules        map[string]*Registration
	order          []string
	initialized    []string
	executeTimeout time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithExecuteTimeout sets the default module execution deadline applied
// when a step declares none.
func WithExecuteTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.executeTimeout = timeout
		}
	}
}

// New creates a module manager.
func New(options ...Option) *Manager {
	ret := &Manager{
		modules:        make(map[string]*Registration),
		executeTimeout: defaultExecuteTimeout,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Register adds a module under its descriptor id. Registering an existing
// id fails.
func (m *Manager) Register(descriptor *types.Descriptor, handler types.Handler) error {
	if descriptor == nil || descriptor.ID == "" {
		return fmt.Errorf("module descriptor has no id")
	}
	if handler == nil {
		return fmt.Errorf("module %q has no handler", descriptor.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[descriptor.ID]; ok {
		return types.NewDuplicateModuleError(descriptor.ID)
	}
	if descriptor.Config == nil {
		descriptor.Config = &types.Config{Enabled: true}
	}
	descriptor.Status = types.StatusRegistered
	m.modules[descriptor.ID] = &Registration{Descriptor: descriptor, Handler: handler}
	m.order = append(m.order, descriptor.ID)
	return nil
}

// Unregister removes a module from the registry. An initialized module is
// not destroyed, teardown stays with DestroyAll.
func (m *Manager) Unregister(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[id]; !ok {
		return types.NewModuleNotFoundError(id)
	}
	delete(m.modules, id)
	for i, known := range m.order {
		if known == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for i, known := range m.initialized {
		if known == id {
			m.initialized = append(m.initialized[:i], m.initialized[i+1:]...)
			break
		}
	}
	return nil
}

// Module returns a registration by id.
func (m *Manager) Module(id string) (*Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	registration, ok := m.modules[id]
	if !ok {
		return nil, types.NewModuleNotFoundError(id)
	}
	return registration, nil
}

// Modules returns all registrations in registration order.
func (m *Manager) Modules() []*Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Registration, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.modules[id])
	}
	return result
}

// ActiveModules returns enabled, initialized modules sorted by ascending
// priority.
func (m *Manager) ActiveModules() []*Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Registration
	for _, id := range m.order {
		registration := m.modules[id]
		descriptor := registration.Descriptor
		if !descriptor.Config.Enabled {
			continue
		}
		switch descriptor.Status {
		case types.StatusInitialized, types.StatusActive:
			result = append(result, registration)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Descriptor.Config.Priority < result[j].Descriptor.Config.Priority
	})
	return result
}

// SetEnabled toggles a module; disabling marks it disabled, enabling
// restores the initialized status when Init already ran.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	registration, ok := m.modules[id]
	if !ok {
		return types.NewModuleNotFoundError(id)
	}
	registration.Descriptor.Config.Enabled = enabled
	if !enabled {
		registration.Descriptor.Status = types.StatusDisabled
		return nil
	}
	for _, initialized := range m.initialized {
		if initialized == id {
			registration.Descriptor.Status = types.StatusInitialized
			return nil
		}
	}
	registration.Descriptor.Status = types.StatusRegistered
	return nil
}

// InitializeAll initializes enabled modules in dependency order. A failure
// of a critical module aborts; non-critical failures mark the module in
// error and continue.
func (m *Manager) InitializeAll(ctx context.Context) error {
	for _, registration := range m.initOrder() {
		descriptor := registration.Descriptor
		if !descriptor.Config.Enabled {
			descriptor.Status = types.StatusDisabled
			continue
		}
		if err := m.checkDependencies(descriptor); err != nil {
			descriptor.Status = types.StatusError
			if descriptor.Config.Critical {
				return err
			}
			log.Printf("skipping module %v: %v", descriptor.ID, err)
			continue
		}
		if err := registration.Handler.Init(ctx); err != nil {
			descriptor.Status = types.StatusError
			if descriptor.Config.Critical {
				return fmt.Errorf("failed to initialize module %v: %w", descriptor.ID, err)
			}
			log.Printf("failed to initialize module %v: %v", descriptor.ID, err)
			continue
		}
		descriptor.Status = types.StatusInitialized
		m.mu.Lock()
		m.initialized = append(m.initialized, descriptor.ID)
		m.mu.Unlock()
	}
	return nil
}

// initOrder sorts registrations by ascending priority, keeping the
// registration order for equal priorities.
func (m *Manager) initOrder() []*Registration {
	result := m.Modules()
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Descriptor.Config.Priority < result[j].Descriptor.Config.Priority
	})
	return result
}

func (m *Manager) checkDependencies(descriptor *types.Descriptor) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dep := range descriptor.Config.DependsOn {
		required, ok := m.modules[dep]
		if !ok {
			return fmt.Errorf("module %v requires unregistered module %v", descriptor.ID, dep)
		}
		switch required.Descriptor.Status {
		case types.StatusInitialized, types.StatusActive:
		default:
			return fmt.Errorf("module %v requires module %v which is not initialized", descriptor.ID, dep)
		}
	}
	return nil
}

// DestroyAll tears modules down in reverse initialization order. Teardown
// continues through individual failures, the first error is returned.
func (m *Manager) DestroyAll(ctx context.Context) error {
	m.mu.Lock()
	initialized := make([]string, len(m.initialized))
	copy(initialized, m.initialized)
	m.initialized = nil
	m.mu.Unlock()

	var firstErr error
	for i := len(initialized) - 1; i >= 0; i-- {
		registration, err := m.Module(initialized[i])
		if err != nil {
			continue
		}
		if err := registration.Handler.Destroy(ctx); err != nil {
			log.Printf("failed to destroy module %v: %v", initialized[i], err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		registration.Descriptor.Status = types.StatusRegistered
	}
	return firstErr
}

// Execute runs a module with a deadline guard. Handler panics convert to
// error results, a missed deadline yields a timeout error result. The
// invocation passes the context policy gate first.
func (m *Manager) Execute(ctx context.Context, invocation *types.Invocation, timeout time.Duration) (*types.Result, error) {
	registration, err := m.Module(invocation.ModuleID)
	if err != nil {
		return nil, err
	}
	descriptor := registration.Descriptor
	if !descriptor.Config.Enabled || descriptor.Status == types.StatusDisabled {
		return nil, fmt.Errorf("module %v is disabled", invocation.ModuleID)
	}
	if err := m.checkPolicy(ctx, invocation); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = m.executeTimeout
	}
	if invocation.StartedAt.IsZero() {
		invocation.StartedAt = time.Now()
	}

	ctx, span := tracing.StartSpan(ctx, "module.execute", "INTERNAL")
	span.WithAttributes(map[string]string{"module.id": invocation.ModuleID})

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *types.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("module %v panicked: %v\n%s", invocation.ModuleID, r, debug.Stack())
				done <- outcome{result: types.NewErrorResult(invocation.ModuleID, fmt.Sprintf("module panicked: %v", r))}
			}
		}()
		result, err := registration.Handler.Execute(execCtx, invocation)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		m.finishResult(out.result, invocation)
		tracing.EndSpan(span, out.err)
		return out.result, out.err
	case <-execCtx.Done():
		err := types.NewModuleTimeoutError(invocation.ModuleID, int(timeout.Milliseconds()))
		tracing.EndSpan(span, err)
		return types.NewErrorResult(invocation.ModuleID, err.Error()), err
	}
}

func (m *Manager) checkPolicy(ctx context.Context, invocation *types.Invocation) error {
	pol := policy.FromContext(ctx)
	if pol == nil {
		return nil
	}
	if !pol.IsAllowed(invocation.ModuleID) {
		return fmt.Errorf("module %v blocked by policy", invocation.ModuleID)
	}
	switch pol.Mode {
	case policy.ModeDeny:
		return fmt.Errorf("module %v denied by policy", invocation.ModuleID)
	case policy.ModeAsk:
		if pol.Ask != nil && !pol.Ask(ctx, invocation.ModuleID, invocation.Inputs, pol) {
			return fmt.Errorf("module %v rejected by policy", invocation.ModuleID)
		}
	}
	return nil
}

func (m *Manager) finishResult(result *types.Result, invocation *types.Invocation) {
	if result == nil {
		return
	}
	if result.ModuleID == "" {
		result.ModuleID = invocation.ModuleID
	}
	if result.Metrics == nil {
		result.Metrics = &types.Metrics{}
	}
	if result.Metrics.ExecutionTimeMs == 0 && !invocation.StartedAt.IsZero() {
		result.Metrics.ExecutionTimeMs = time.Since(invocation.StartedAt).Milliseconds()
	}
}
