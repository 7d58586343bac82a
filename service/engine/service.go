// Package engine runs workflow instances: it walks the step sequence of a
// definition, drives the instance state machine and records history.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/modflow/modflow/extension"
	"github.com/modflow/modflow/internal/idgen"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/approval"
	"github.com/modflow/modflow/service/audit"
	"github.com/modflow/modflow/service/dao"
	"github.com/modflow/modflow/service/module"
	"github.com/modflow/modflow/service/registry"
	"github.com/modflow/modflow/service/workflow"
)

const (
	defaultPollFrequency = 20 * time.Millisecond
	defaultWaitTimeout   = 5 * time.Minute
)

// ExternalResolver binds "service" input sources and output targets to an
// external system.
type ExternalResolver interface {
	Resolve(ctx context.Context, key string) (interface{}, bool, error)
	Publish(ctx context.Context, key string, value interface{}) error
}

// Service executes workflow instances.
type Service struct {
	workflows   *workflow.Service
	modules     *module.Manager
	instanceDAO dao.Service[string, execution.Instance]
	approvals   approval.Service
	auditor     audit.Service
	types       *extension.Types
	external    ExternalResolver
	services    *registry.Services

	pollFrequency time.Duration
	stepTimeout   time.Duration
}

// Option customizes the engine.
type Option func(*Service)

// WithExternalResolver wires the external service binding.
func WithExternalResolver(resolver ExternalResolver) Option {
	return func(s *Service) {
		s.external = resolver
	}
}

// WithServices exposes the cross-cutting service bundle to module handlers
// through the invocation context.
func WithServices(services *registry.Services) Option {
	return func(s *Service) {
		s.services = services
	}
}

// WithPollFrequency sets how often parked instances get re-checked.
func WithPollFrequency(frequency time.Duration) Option {
	return func(s *Service) {
		if frequency > 0 {
			s.pollFrequency = frequency
		}
	}
}

// WithDefaultStepTimeout sets the step deadline used when a step declares
// none.
func WithDefaultStepTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.stepTimeout = timeout
		}
	}
}

// New creates an engine.
func New(workflows *workflow.Service, modules *module.Manager, instanceDAO dao.Service[string, execution.Instance], approvals approval.Service, auditor audit.Service, types *extension.Types, options ...Option) *Service {
	ret := &Service{
		workflows:     workflows,
		modules:       modules,
		instanceDAO:   instanceDAO,
		approvals:     approvals,
		auditor:       auditor,
		types:         types,
		pollFrequency: defaultPollFrequency,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Start creates an instance of the workflow and begins executing it in the
// background. The returned Wait blocks until the instance finishes.
func (s *Service) Start(ctx context.Context, workflowID string, parameters map[string]interface{}) (*execution.Instance, execution.Wait, error) {
	definition, err := s.workflows.Workflow(workflowID)
	if err != nil {
		return nil, nil, err
	}
	if definition.When != "" && !s.evaluateGuard(definition.When, parameters) {
		return nil, nil, fmt.Errorf("workflow %v guard rejected parameters", workflowID)
	}
	id := fmt.Sprintf("%v/%v", workflowID, idgen.New())
	instance := execution.NewInstance(id, definition, parameters, execution.WithTypes(s.types))
	if err := s.instanceDAO.Save(ctx, instance); err != nil {
		return nil, nil, err
	}
	go s.run(context.WithoutCancel(ctx), instance, definition)
	return instance, s.waitFor(instance.ID), nil
}

// Execute runs a workflow synchronously and returns its final output.
func (s *Service) Execute(ctx context.Context, workflowID string, parameters map[string]interface{}, timeout time.Duration) (*execution.RunOutput, error) {
	_, wait, err := s.Start(ctx, workflowID, parameters)
	if err != nil {
		return nil, err
	}
	return wait(ctx, timeout)
}

// waitFor builds a Wait that polls the instance until a terminal status.
func (s *Service) waitFor(instanceID string) execution.Wait {
	return func(ctx context.Context, timeout time.Duration) (*execution.RunOutput, error) {
		if timeout <= 0 {
			timeout = defaultWaitTimeout
		}
		started := time.Now()
		expiry := started.Add(timeout)
		for {
			instance, err := s.loadInstance(ctx, instanceID)
			if err != nil {
				return nil, err
			}
			status := instance.GetStatus()
			if status.IsTerminal() {
				return &execution.RunOutput{
					InstanceID: instanceID,
					Status:     status,
					Output:     instance.Session.Snapshot(),
					StepErrors: instance.ErrorsSnapshot(),
					TimeTaken:  time.Since(started),
				}, nil
			}
			if time.Now().After(expiry) {
				return &execution.RunOutput{
					InstanceID: instanceID,
					Status:     status,
					Output:     instance.Session.Snapshot(),
					StepErrors: instance.ErrorsSnapshot(),
					TimeTaken:  time.Since(started),
					Timeout:    true,
				}, nil
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.pollFrequency):
			}
		}
	}
}

// Instance returns an instance by id.
func (s *Service) Instance(ctx context.Context, id string) (*execution.Instance, error) {
	return s.loadInstance(ctx, id)
}

// Status returns the current status of an instance.
func (s *Service) Status(ctx context.Context, id string) (execution.Status, error) {
	instance, err := s.loadInstance(ctx, id)
	if err != nil {
		return "", err
	}
	return instance.GetStatus(), nil
}

// History returns the append-only step history of an instance.
func (s *Service) History(ctx context.Context, id string) ([]*execution.HistoryEntry, error) {
	instance, err := s.loadInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	return instance.HistorySnapshot(), nil
}

// Pause parks a running instance before its next step.
func (s *Service) Pause(ctx context.Context, id string) error {
	instance, err := s.loadInstance(ctx, id)
	if err != nil {
		return err
	}
	if err := instance.SetStatus(execution.StatusPaused); err != nil {
		return err
	}
	s.logAudit(ctx, instance, &audit.Event{Kind: audit.KindInstancePaused})
	return s.instanceDAO.Save(ctx, instance)
}

// Resume continues a paused instance from its next unexecuted step.
func (s *Service) Resume(ctx context.Context, id string) error {
	instance, err := s.loadInstance(ctx, id)
	if err != nil {
		return err
	}
	if err := instance.SetStatus(execution.StatusRunning); err != nil {
		return err
	}
	s.logAudit(ctx, instance, &audit.Event{Kind: audit.KindInstanceResumed})
	return s.instanceDAO.Save(ctx, instance)
}

// Cancel requests cancellation. The run loop honours it before the next
// step or retry attempt; an executing module is not interrupted.
func (s *Service) Cancel(ctx context.Context, id string) error {
	instance, err := s.loadInstance(ctx, id)
	if err != nil {
		return err
	}
	if instance.GetStatus().IsTerminal() {
		return fmt.Errorf("instance %v already finished", id)
	}
	return instance.SetStatus(execution.StatusCancelled)
}

// ActiveInstances lists non-terminal instances, optionally scoped to a
// study.
func (s *Service) ActiveInstances(ctx context.Context, studyID string) ([]*execution.Instance, error) {
	var parameters []*dao.Parameter
	if studyID != "" {
		parameters = append(parameters, dao.NewParameter("studyId", studyID))
	}
	instances, err := s.instanceDAO.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	var active []*execution.Instance
	for _, instance := range instances {
		if !instance.GetStatus().IsTerminal() {
			active = append(active, instance)
		}
	}
	return active, nil
}

func (s *Service) logAudit(ctx context.Context, instance *execution.Instance, event *audit.Event) {
	if s.auditor == nil {
		return
	}
	event.InstanceID = instance.ID
	event.WorkflowID = instance.WorkflowID
	if instance.Session != nil {
		event.StudyID = instance.Session.StudyID
	}
	_ = s.auditor.Log(ctx, event)
}
