package modflow

import (
	"context"
	"fmt"
	"time"

	"github.com/modflow/modflow/model"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/approval"
	"github.com/modflow/modflow/service/audit"
	"github.com/modflow/modflow/service/dao"
	"github.com/modflow/modflow/service/engine"
	"github.com/modflow/modflow/service/event"
	"github.com/modflow/modflow/service/module"
	"github.com/modflow/modflow/service/workflow"
)

// Runtime couples the assembled services into a running workflow engine.
type Runtime struct {
	workflows   *workflow.Service
	modules     *module.Manager
	instanceDAO dao.Service[string, execution.Instance]
	approvals   approval.Service
	auditor     audit.Service
	engine      *engine.Service
	events      *event.Service

	definitionURLs []string
}

// Start initializes registered modules, loads configured workflow
// definitions and begins draining published events. A critical module
// failure aborts the start.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.modules.InitializeAll(ctx); err != nil {
		return err
	}
	for _, URL := range r.definitionURLs {
		if _, err := r.workflows.Load(ctx, URL); err != nil {
			return fmt.Errorf("failed to load workflow %v: %w", URL, err)
		}
	}
	r.events.StartConsumer(ctx)
	return nil
}

// Shutdown stops the event consumer and tears registered modules down in
// reverse initialization order.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.events.Shutdown()
	return r.modules.DestroyAll(ctx)
}

// LoadWorkflow loads a workflow definition from the supplied URL and
// registers it.
func (r *Runtime) LoadWorkflow(ctx context.Context, URL string) (*model.Workflow, error) {
	return r.workflows.Load(ctx, URL)
}

// DecodeYAMLWorkflow decodes a workflow definition without registering it.
func (r *Runtime) DecodeYAMLWorkflow(data []byte) (*model.Workflow, error) {
	return r.workflows.DecodeYAML(data)
}

// RegisterWorkflow validates and registers a workflow definition.
func (r *Runtime) RegisterWorkflow(definition *model.Workflow) error {
	return r.workflows.Register(definition)
}

// StartWorkflow creates an instance of the identified workflow and executes
// it in the background.
func (r *Runtime) StartWorkflow(ctx context.Context, workflowID string, parameters map[string]interface{}) (*execution.Instance, execution.Wait, error) {
	return r.engine.Start(ctx, workflowID, parameters)
}

// ExecuteWorkflow runs a workflow to completion, waiting up to timeout for a
// terminal status.
func (r *Runtime) ExecuteWorkflow(ctx context.Context, workflowID string, parameters map[string]interface{}, timeout time.Duration) (*execution.RunOutput, error) {
	return r.engine.Execute(ctx, workflowID, parameters, timeout)
}

// Instance returns a workflow instance by id.
func (r *Runtime) Instance(ctx context.Context, id string) (*execution.Instance, error) {
	return r.engine.Instance(ctx, id)
}

// Pause suspends a running instance between steps.
func (r *Runtime) Pause(ctx context.Context, id string) error {
	return r.engine.Pause(ctx, id)
}

// Resume continues a paused instance.
func (r *Runtime) Resume(ctx context.Context, id string) error {
	return r.engine.Resume(ctx, id)
}

// Cancel stops an instance. Cancellation takes effect before the next step
// or retry attempt.
func (r *Runtime) Cancel(ctx context.Context, id string) error {
	return r.engine.Cancel(ctx, id)
}

// Trigger dispatches an event synchronously and returns the workflow
// instances it started.
func (r *Runtime) Trigger(ctx context.Context, anEvent *event.Event) []*execution.Instance {
	return r.events.Trigger(ctx, anEvent)
}

// PublishEvent enqueues an event for asynchronous dispatch.
func (r *Runtime) PublishEvent(ctx context.Context, anEvent *event.Event) error {
	return r.events.Publish(ctx, anEvent)
}

// Workflows returns the workflow registry.
func (r *Runtime) Workflows() *workflow.Service {
	return r.workflows
}

// Modules returns the module manager.
func (r *Runtime) Modules() *module.Manager {
	return r.modules
}

// Approvals returns the approval service.
func (r *Runtime) Approvals() approval.Service {
	return r.approvals
}

// Events returns the event bus.
func (r *Runtime) Events() *event.Service {
	return r.events
}

// Engine returns the workflow engine.
func (r *Runtime) Engine() *engine.Service {
	return r.engine
}
