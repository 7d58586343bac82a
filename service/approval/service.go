// Package approval gates workflow steps on a human decision. An approval
// step parks its instance until a decision arrives for the request.
package approval

import (
	"context"
	"time"

	"github.com/modflow/modflow/service/messaging"
)

// Event is the envelope published on the approval queue.
type Event struct {
	Topic   string            // see topic constants below
	Data    interface{}       // *Request | *Decision
	Headers map[string]string `json:"headers,omitempty"`
}

// Event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicDecisionCreated = "decision.created"
)

// Request asks for a decision on a parked approval step.
type Request struct {
	ID         string                 `json:"id"`
	InstanceID string                 `json:"instanceId"`
	WorkflowID string                 `json:"workflowId"`
	StepID     string                 `json:"stepId"`
	Prompt     string                 `json:"prompt,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	ExpiresAt  *time.Time             `json:"expiresAt,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Decision records the outcome for a request, keyed by the request id.
type Decision struct {
	ID        string    `json:"id"`
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Service defines the approval service contract.
type Service interface {
	RequestApproval(ctx context.Context, r *Request) error
	ListPending(ctx context.Context) ([]*Request, error)
	Decide(ctx context.Context, id string, approved bool, reason string) (*Decision, error)
	Decision(ctx context.Context, id string) (*Decision, error)
	Queue() messaging.Queue[Event]
}
