package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/dao"
)

// ErrInstanceNotFound indicates an unknown workflow instance id.
var ErrInstanceNotFound = errors.New("instance not found")

// StepError wraps a step failure with the failing step id and the attempt
// count at which the step gave up.
type StepError struct {
	StepID   string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("step %v failed after %d attempts: %v", e.StepID, e.Attempts, e.Err)
	}
	return fmt.Sprintf("step %v failed: %v", e.StepID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// loadInstance resolves an instance by id, translating the DAO miss into
// ErrInstanceNotFound.
func (s *Service) loadInstance(ctx context.Context, id string) (*execution.Instance, error) {
	instance, err := s.instanceDAO.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrInstanceNotFound, id)
	}
	return instance, err
}
