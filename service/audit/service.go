// Package audit records the execution trail of workflow instances: starts,
// step outcomes, module invocations and terminal states.
package audit

import (
	"context"
	"time"
)

// Event kinds recorded by the engine.
const (
	KindInstanceStarted   = "instance.started"
	KindInstanceFinished  = "instance.finished"
	KindInstancePaused    = "instance.paused"
	KindInstanceResumed   = "instance.resumed"
	KindStepCompleted     = "step.completed"
	KindStepFailed        = "step.failed"
	KindStepSkipped       = "step.skipped"
	KindApprovalRequested = "approval.requested"
	KindApprovalDecided   = "approval.decided"
)

// Event is a single audit record.
type Event struct {
	ID         string                 `json:"id"`
	Time       time.Time              `json:"time"`
	Kind       string                 `json:"kind"`
	InstanceID string                 `json:"instanceId,omitempty"`
	WorkflowID string                 `json:"workflowId,omitempty"`
	StepID     string                 `json:"stepId,omitempty"`
	ModuleID   string                 `json:"moduleId,omitempty"`
	StudyID    string                 `json:"studyId,omitempty"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Service is the audit sink contract.
type Service interface {
	Log(ctx context.Context, event *Event) error
}
