package types

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound indicates a lookup for an unregistered module id.
	ErrModuleNotFound = errors.New("module not found")
	// ErrDuplicateModule indicates a second registration under an existing id.
	ErrDuplicateModule = errors.New("module already registered")
	// ErrModuleTimeout indicates a module exceeded its execution deadline.
	ErrModuleTimeout = errors.New("module execution timeout")
	// ErrMissingInput indicates a required input could not be resolved.
	ErrMissingInput = errors.New("missing required input")
	// ErrTypeMismatch indicates an input value could not be coerced to its declared type.
	ErrTypeMismatch = errors.New("input type mismatch")
)

// NewModuleNotFoundError wraps ErrModuleNotFound with the module id.
func NewModuleNotFoundError(id string) error {
	return fmt.Errorf("module %q: %w", id, ErrModuleNotFound)
}

// NewDuplicateModuleError wraps ErrDuplicateModule with the module id.
func NewDuplicateModuleError(id string) error {
	return fmt.Errorf("module %q: %w", id, ErrDuplicateModule)
}

// NewModuleTimeoutError wraps ErrModuleTimeout with module id and deadline.
func NewModuleTimeoutError(id string, timeoutMs int) error {
	return fmt.Errorf("module %q exceeded %dms: %w", id, timeoutMs, ErrModuleTimeout)
}

// NewMissingInputError wraps ErrMissingInput with input and step identity.
func NewMissingInputError(stepID, name string) error {
	return fmt.Errorf("step %q input %q: %w", stepID, name, ErrMissingInput)
}

// NewTypeMismatchError wraps ErrTypeMismatch with the offending input.
func NewTypeMismatchError(stepID, name, wantType string, got any) error {
	return fmt.Errorf("step %q input %q: cannot coerce %T to %s: %w", stepID, name, got, wantType, ErrTypeMismatch)
}
