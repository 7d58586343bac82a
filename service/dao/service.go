package dao

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrNilEntity indicates a nil entity was passed to Save.
	ErrNilEntity = errors.New("nil entity")
)

// Service is a generic persistence contract for engine entities.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
