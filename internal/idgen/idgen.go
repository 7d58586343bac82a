// Package idgen wraps identifier generation so it can be stubbed in tests.
// Callers must treat identifiers as opaque strings.
package idgen

import "github.com/google/uuid"

// NewFunc produces a globally unique identifier. Tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a fresh identifier.
func New() string { return NewFunc() }
