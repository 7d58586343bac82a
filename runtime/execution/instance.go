package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modflow/modflow/internal/clock"
	"github.com/modflow/modflow/model"
)

// HistoryEntry records the outcome of one step attempt series.
type HistoryEntry struct {
	StepID    string                 `json:"stepId"`
	Status    StepStatus             `json:"status"`
	Attempt   int                    `json:"attempt"`
	StartedAt time.Time              `json:"startedAt"`
	EndedAt   time.Time              `json:"endedAt"`
	Duration  time.Duration          `json:"duration"`
	Inputs    map[string]interface{} `json:"inputs,omitempty"`
	Outputs   map[string]interface{} `json:"outputs,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Instance is one run of a workflow definition.
type Instance struct {
	ID         string                 `json:"id"`
	WorkflowID string                 `json:"workflowId"`
	Status     Status                 `json:"status"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Session    *Session               `json:"session"`
	History    []*HistoryEntry        `json:"history,omitempty"`
	StepErrors map[string]string      `json:"stepErrors,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`

	attempts map[string]int
	mu       sync.RWMutex
}

// NewInstance creates a pending instance of the supplied workflow.
func NewInstance(id string, workflow *model.Workflow, parameters map[string]interface{}, sessionOptions ...Option) *Instance {
	now := clock.Now()
	if parameters == nil {
		parameters = make(map[string]interface{})
	}
	options := append([]Option{WithContext(parameters)}, sessionOptions...)
	return &Instance{
		ID:         id,
		WorkflowID: workflow.ID,
		Status:     StatusPending,
		Parameters: parameters,
		Session:    NewSession(id, options...),
		StepErrors: make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
		attempts:   make(map[string]int),
	}
}

// GetStatus returns the current status.
func (i *Instance) GetStatus() Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.Status
}

// SetStatus applies a transition, rejecting illegal moves. Terminal states
// never regress.
func (i *Instance) SetStatus(next Status) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.Status.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s for instance %s", i.Status, next, i.ID)
	}
	i.Status = next
	i.UpdatedAt = clock.Now()
	if next.IsTerminal() {
		finished := i.UpdatedAt
		i.FinishedAt = &finished
	}
	return nil
}

// AppendHistory records a step outcome. History is append-only.
func (i *Instance) AppendHistory(entry *HistoryEntry) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.History = append(i.History, entry)
	i.UpdatedAt = clock.Now()
}

// HistorySnapshot returns a copy of the history slice.
func (i *Instance) HistorySnapshot() []*HistoryEntry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	result := make([]*HistoryEntry, len(i.History))
	copy(result, i.History)
	return result
}

// Executed reports whether the step already reached a final step status.
func (i *Instance) Executed(stepID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, entry := range i.History {
		if entry.StepID != stepID {
			continue
		}
		switch entry.Status {
		case StepCompleted, StepSkipped:
			return true
		}
	}
	return false
}

// NextAttempt increments and returns the attempt counter for a step.
func (i *Instance) NextAttempt(stepID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.attempts[stepID]++
	return i.attempts[stepID]
}

// Attempts returns the attempt counter for a step.
func (i *Instance) Attempts(stepID string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.attempts[stepID]
}

// SetStepError records a step failure message.
func (i *Instance) SetStepError(stepID, message string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.StepErrors[stepID] = message
}

// ErrorsSnapshot returns a copy of the step error map.
func (i *Instance) ErrorsSnapshot() map[string]string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	result := make(map[string]string, len(i.StepErrors))
	for k, v := range i.StepErrors {
		result[k] = v
	}
	return result
}

// Wait blocks until the instance reaches a terminal state or the timeout
// elapses.
type Wait func(ctx context.Context, timeout time.Duration) (*RunOutput, error)

// RunOutput summarizes a finished (or timed out) instance run.
type RunOutput struct {
	InstanceID string
	Status     Status
	Output     map[string]interface{}
	StepErrors map[string]string
	TimeTaken  time.Duration
	Timeout    bool
}
