// Package event routes external events to direct subscribers and to
// workflows whose definitions declare a matching event trigger.
package event

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/modflow/modflow/internal/clock"
	"github.com/modflow/modflow/internal/idgen"
	"github.com/modflow/modflow/model"
	"github.com/modflow/modflow/runtime/evaluator"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/messaging"
	qmem "github.com/modflow/modflow/service/messaging/memory"
	"github.com/modflow/modflow/service/workflow"
)

// Event is an external occurrence delivered to the bus.
type Event struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Source  string                 `json:"source,omitempty"`
	Time    time.Time              `json:"time"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Handler consumes an event delivered to a subscription.
type Handler func(ctx context.Context, event *Event) error

// Starter launches workflow instances; implemented by the engine.
type Starter interface {
	Start(ctx context.Context, workflowID string, parameters map[string]interface{}) (*execution.Instance, execution.Wait, error)
}

// Service is the event bus.
type Service struct {
	definitions *workflow.Service
	starter     Starter

	mu            sync.RWMutex
	subscriptions map[string]map[string]Handler // event type -> subscription id -> handler

	queue  messaging.Queue[Event]
	cancel context.CancelFunc
}

// New creates an event bus over the workflow registry. The starter arrives
// later via SetStarter to break the construction cycle with the engine.
func New(definitions *workflow.Service) *Service {
	return &Service{
		definitions:   definitions,
		subscriptions: make(map[string]map[string]Handler),
		queue:         qmem.NewQueue[Event](qmem.DefaultConfig()),
	}
}

// SetStarter wires the instance starter.
func (s *Service) SetStarter(starter Starter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starter = starter
}

// Subscribe registers a handler for an event type and returns the
// subscription id.
func (s *Service) Subscribe(eventType string, handler Handler) string {
	id := idgen.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	handlers, ok := s.subscriptions[eventType]
	if !ok {
		handlers = make(map[string]Handler)
		s.subscriptions[eventType] = handlers
	}
	handlers[id] = handler
	return id
}

// Unsubscribe removes a subscription; unknown ids are ignored.
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, handlers := range s.subscriptions {
		delete(handlers, id)
	}
}

// Trigger dispatches the event synchronously: direct subscribers first,
// then one instance per matching event trigger in the registry. Handler
// and start failures stay isolated per match. It returns the started
// instances.
func (s *Service) Trigger(ctx context.Context, event *Event) []*execution.Instance {
	if event.ID == "" {
		event.ID = idgen.New()
	}
	if event.Time.IsZero() {
		event.Time = clock.Now()
	}
	s.dispatch(ctx, event)
	return s.startMatching(ctx, event)
}

// Publish enqueues the event for asynchronous delivery.
func (s *Service) Publish(ctx context.Context, event *Event) error {
	return s.queue.Publish(ctx, event)
}

// StartConsumer begins draining published events in the background.
func (s *Service) StartConsumer(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go func() {
		for {
			message, err := s.queue.Consume(ctx)
			if err != nil {
				return
			}
			s.Trigger(ctx, message.T())
			_ = message.Ack()
		}
	}()
}

// Shutdown stops the consumer.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// dispatch calls direct subscribers, recovering from handler panics so one
// subscriber cannot take down the bus.
func (s *Service) dispatch(ctx context.Context, event *Event) {
	s.mu.RLock()
	handlers := make([]Handler, 0, len(s.subscriptions[event.Type]))
	for _, handler := range s.subscriptions[event.Type] {
		handlers = append(handlers, handler)
	}
	s.mu.RUnlock()
	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("event handler panicked on %v: %v", event.Type, r)
				}
			}()
			if err := handler(ctx, event); err != nil {
				log.Printf("event handler failed on %v: %v", event.Type, err)
			}
		}()
	}
}

// startMatching walks the registry and starts one instance per matching
// event trigger.
func (s *Service) startMatching(ctx context.Context, event *Event) []*execution.Instance {
	s.mu.RLock()
	starter := s.starter
	s.mu.RUnlock()
	if starter == nil {
		return nil
	}
	var started []*execution.Instance
	for _, definition := range s.definitions.List() {
		for _, trigger := range definition.EventTriggers(event.Type) {
			if trigger.When != "" && !evaluator.AsBool(trigger.When, event.Payload) {
				continue
			}
			parameters := triggerParameters(trigger, event)
			instance, _, err := starter.Start(ctx, definition.ID, parameters)
			if err != nil {
				log.Printf("failed to start workflow %v on event %v: %v", definition.ID, event.Type, err)
				continue
			}
			started = append(started, instance)
		}
	}
	return started
}

// triggerParameters seeds an instance from the trigger declaration and the
// event payload; explicit trigger parameters win over payload keys.
func triggerParameters(trigger *model.Trigger, event *Event) map[string]interface{} {
	parameters := make(map[string]interface{}, len(trigger.Parameters)+len(event.Payload)+1)
	for key, value := range event.Payload {
		parameters[key] = value
	}
	for key, value := range trigger.Parameters {
		parameters[key] = value
	}
	parameters["event"] = map[string]interface{}{
		"id":     event.ID,
		"type":   event.Type,
		"source": event.Source,
		"time":   event.Time,
	}
	return parameters
}
