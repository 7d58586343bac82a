// Package memory provides the in-memory approval service used by default.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modflow/modflow/internal/idgen"
	"github.com/modflow/modflow/service/approval"
	"github.com/modflow/modflow/service/dao"
	"github.com/modflow/modflow/service/dao/store"
	"github.com/modflow/modflow/service/messaging"
	qmem "github.com/modflow/modflow/service/messaging/memory"
)

type service struct {
	reqDAO dao.Service[string, approval.Request]
	decDAO dao.Service[string, approval.Decision]
	events messaging.Queue[approval.Event]
}

func reqKey(r *approval.Request) string  { return r.ID }
func decKey(d *approval.Decision) string { return d.ID }

// New creates an in-memory approval service.
func New() approval.Service {
	return &service{
		reqDAO: store.NewMemoryStore[string, approval.Request](reqKey),
		decDAO: store.NewMemoryStore[string, approval.Decision](decKey),
		events: qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
	}
}

// RequestApproval stores the request and announces it on the event queue.
// Re-submission under the same id overwrites the previous copy.
func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil {
		return errors.New("invalid request")
	}
	if r.ID == "" {
		r.ID = idgen.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := s.reqDAO.Save(ctx, r); err != nil {
		return err
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: r})
	return nil
}

// ListPending returns requests without a decision.
func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if d, _ := s.decDAO.Load(ctx, r.ID); d == nil {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// Decide records a decision for a pending request. Deciding twice fails.
func (s *service) Decide(ctx context.Context, id string, approved bool, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, errors.New("empty id")
	}
	request, _ := s.reqDAO.Load(ctx, id)
	if request == nil {
		return nil, fmt.Errorf("request %s not found", id)
	}
	if d, _ := s.decDAO.Load(ctx, id); d != nil {
		return nil, fmt.Errorf("request %s already decided", id)
	}
	d := &approval.Decision{
		ID:        id,
		Approved:  approved,
		Reason:    reason,
		DecidedAt: time.Now(),
	}
	if err := s.decDAO.Save(ctx, d); err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: d})
	return d, nil
}

// Decision returns the decision for a request, nil while pending.
func (s *service) Decision(ctx context.Context, id string) (*approval.Decision, error) {
	d, err := s.decDAO.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, nil
	}
	return d, err
}

// Queue exposes the approval event queue.
func (s *service) Queue() messaging.Queue[approval.Event] {
	return s.events
}
