package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modflow/modflow/model"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/workflow"
)

// fakeStarter records start requests instead of running workflows.
type fakeStarter struct {
	mu       sync.Mutex
	requests []startRequest
	err      error
}

type startRequest struct {
	workflowID string
	parameters map[string]interface{}
}

func (s *fakeStarter) Start(ctx context.Context, workflowID string, parameters map[string]interface{}) (*execution.Instance, execution.Wait, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, nil, s.err
	}
	s.requests = append(s.requests, startRequest{workflowID: workflowID, parameters: parameters})
	instance := &execution.Instance{ID: workflowID + "/test", WorkflowID: workflowID}
	return instance, nil, nil
}

func (s *fakeStarter) started() []startRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]startRequest(nil), s.requests...)
}

func newTestBus(t *testing.T, definitions ...*model.Workflow) (*Service, *fakeStarter) {
	t.Helper()
	registry := workflow.New()
	for _, definition := range definitions {
		require.NoError(t, registry.Register(definition))
	}
	starter := &fakeStarter{}
	bus := New(registry)
	bus.SetStarter(starter)
	return bus, starter
}

func triggeredWorkflow(id, eventType, when string) *model.Workflow {
	return &model.Workflow{
		ID:    id,
		Steps: []*model.Step{{ID: "one", Kind: model.KindModule, ModuleID: "nop"}},
		Triggers: []*model.Trigger{
			{Kind: model.TriggerEvent, Event: eventType, When: when},
		},
	}
}

func TestService_Trigger_startsMatchingWorkflows(t *testing.T) {
	bus, starter := newTestBus(t,
		triggeredWorkflow("intake", "document.uploaded", ""),
		triggeredWorkflow("audit-trail", "document.uploaded", ""),
		triggeredWorkflow("closeout", "study.closed", ""),
	)

	started := bus.Trigger(context.Background(), &Event{
		Type:    "document.uploaded",
		Payload: map[string]interface{}{"documentId": "doc-1"},
	})
	assert.Len(t, started, 2)

	requests := starter.started()
	require.Len(t, requests, 2)
	ids := []string{requests[0].workflowID, requests[1].workflowID}
	assert.ElementsMatch(t, []string{"intake", "audit-trail"}, ids)
	assert.Equal(t, "doc-1", requests[0].parameters["documentId"])
}

func TestService_Trigger_unmatchedEventStartsNothing(t *testing.T) {
	bus, starter := newTestBus(t, triggeredWorkflow("intake", "document.uploaded", ""))

	started := bus.Trigger(context.Background(), &Event{Type: "study.closed"})
	assert.Empty(t, started)
	assert.Empty(t, starter.started())
}

func TestService_Trigger_whenFiltersPayload(t *testing.T) {
	bus, starter := newTestBus(t,
		triggeredWorkflow("protocol-intake", "document.uploaded", "${documentType == 'protocol'}"),
	)

	started := bus.Trigger(context.Background(), &Event{
		Type:    "document.uploaded",
		Payload: map[string]interface{}{"documentType": "invoice"},
	})
	assert.Empty(t, started)

	started = bus.Trigger(context.Background(), &Event{
		Type:    "document.uploaded",
		Payload: map[string]interface{}{"documentType": "protocol"},
	})
	assert.Len(t, started, 1)
	assert.Len(t, starter.started(), 1)
}

func TestService_Trigger_parameterPrecedence(t *testing.T) {
	definition := triggeredWorkflow("intake", "document.uploaded", "")
	definition.Triggers[0].Parameters = map[string]interface{}{"priority": "high"}
	bus, starter := newTestBus(t, definition)

	bus.Trigger(context.Background(), &Event{
		ID:   "evt-1",
		Type: "document.uploaded",
		Payload: map[string]interface{}{
			"priority":   "low",
			"documentId": "doc-1",
		},
	})

	requests := starter.started()
	require.Len(t, requests, 1)
	parameters := requests[0].parameters
	// explicit trigger parameters win over payload keys
	assert.Equal(t, "high", parameters["priority"])
	assert.Equal(t, "doc-1", parameters["documentId"])

	meta, ok := parameters["event"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "evt-1", meta["id"])
	assert.Equal(t, "document.uploaded", meta["type"])
}

func TestService_Trigger_startFailureIsolated(t *testing.T) {
	bus, starter := newTestBus(t,
		triggeredWorkflow("intake", "document.uploaded", ""),
	)
	starter.err = errors.New("engine unavailable")

	started := bus.Trigger(context.Background(), &Event{Type: "document.uploaded"})
	assert.Empty(t, started)
}

func TestService_Subscribe(t *testing.T) {
	bus, _ := newTestBus(t)

	var mu sync.Mutex
	var received []string
	id := bus.Subscribe("document.uploaded", func(ctx context.Context, event *Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event.ID)
		return nil
	})
	bus.Subscribe("document.uploaded", func(ctx context.Context, event *Event) error {
		return errors.New("handler failed")
	})
	bus.Subscribe("document.uploaded", func(ctx context.Context, event *Event) error {
		panic("handler panicked")
	})

	// a failing or panicking sibling does not block delivery
	bus.Trigger(context.Background(), &Event{ID: "evt-1", Type: "document.uploaded"})
	mu.Lock()
	assert.Equal(t, []string{"evt-1"}, received)
	mu.Unlock()

	bus.Unsubscribe(id)
	bus.Trigger(context.Background(), &Event{ID: "evt-2", Type: "document.uploaded"})
	mu.Lock()
	assert.Equal(t, []string{"evt-1"}, received)
	mu.Unlock()
}

func TestService_PublishConsume(t *testing.T) {
	bus, starter := newTestBus(t, triggeredWorkflow("intake", "document.uploaded", ""))
	bus.StartConsumer(context.Background())
	defer bus.Shutdown()

	require.NoError(t, bus.Publish(context.Background(), &Event{Type: "document.uploaded"}))

	var requests []startRequest
	for i := 0; i < 100; i++ {
		requests = starter.started()
		if len(requests) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, requests, 1)
	assert.Equal(t, "intake", requests[0].workflowID)
}
