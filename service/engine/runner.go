package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/modflow/modflow/internal/clock"
	"github.com/modflow/modflow/model"
	"github.com/modflow/modflow/model/types"
	"github.com/modflow/modflow/progress"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/runtime/evaluator"
	"github.com/modflow/modflow/service/approval"
	"github.com/modflow/modflow/service/audit"
	"github.com/modflow/modflow/service/registry"
	"github.com/modflow/modflow/tracing"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 100 * time.Millisecond
)

var errCancelled = errors.New("instance cancelled")

// run drives one instance to a terminal state.
func (s *Service) run(ctx context.Context, instance *execution.Instance, definition *model.Workflow) {
	if err := instance.SetStatus(execution.StatusRunning); err != nil {
		return
	}
	if s.services != nil {
		ctx = registry.WithServices(ctx, s.services)
	}
	_ = s.instanceDAO.Save(ctx, instance)
	s.logAudit(ctx, instance, &audit.Event{Kind: audit.KindInstanceStarted})

	if timeout := definition.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, tracker := progress.WithNewTracker(ctx, instance.ID, definition.ID, nil)
	tracker.Update(progress.Delta{Total: countSteps(definition.Steps), Pending: countSteps(definition.Steps)})

	ctx, span := tracing.StartSpan(ctx, "workflow.run", "INTERNAL")
	span.WithAttributes(map[string]string{"workflow.id": definition.ID, "instance.id": instance.ID})

	err := s.runSteps(ctx, instance, definition, definition.Steps)
	final := execution.StatusCompleted
	switch {
	case errors.Is(err, errCancelled):
		final = "" // cancel already applied
	case err != nil:
		final = execution.StatusFailed
	}
	if final != "" {
		_ = instance.SetStatus(final)
	}
	_ = s.instanceDAO.Save(ctx, instance)
	tracing.EndSpan(span, err)
	event := &audit.Event{Kind: audit.KindInstanceFinished, Detail: map[string]interface{}{"status": string(instance.GetStatus())}}
	if err != nil {
		event.Error = err.Error()
	}
	s.logAudit(ctx, instance, event)
}

func countSteps(steps []*model.Step) int {
	total := 0
	for _, step := range steps {
		total++
		total += countSteps(step.Steps)
	}
	return total
}

// runSteps executes steps in order, honouring pause and cancellation
// between steps.
func (s *Service) runSteps(ctx context.Context, instance *execution.Instance, definition *model.Workflow, steps []*model.Step) error {
	for _, step := range steps {
		if err := s.awaitRunnable(ctx, instance); err != nil {
			return err
		}
		if instance.Executed(step.ID) {
			continue
		}
		if err := s.runStep(ctx, instance, definition, step); err != nil {
			return err
		}
		_ = s.instanceDAO.Save(ctx, instance)
	}
	return nil
}

// awaitRunnable blocks while the instance is paused and surfaces
// cancellation.
func (s *Service) awaitRunnable(ctx context.Context, instance *execution.Instance) error {
	for {
		switch instance.GetStatus() {
		case execution.StatusRunning:
			return nil
		case execution.StatusCancelled:
			return errCancelled
		case execution.StatusPaused:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pollFrequency):
			}
		default:
			return fmt.Errorf("instance %v in unexpected state %v", instance.ID, instance.GetStatus())
		}
	}
}

// runStep guards, dispatches and retries a single step.
func (s *Service) runStep(ctx context.Context, instance *execution.Instance, definition *model.Workflow, step *model.Step) error {
	scope := s.scope(instance)
	if step.When != "" && !evaluator.AsBool(step.When, scope) {
		entry := &execution.HistoryEntry{
			StepID:    step.ID,
			Status:    execution.StepSkipped,
			StartedAt: clock.Now(),
			EndedAt:   clock.Now(),
		}
		instance.AppendHistory(entry)
		progress.UpdateCtx(ctx, progress.Delta{Skipped: 1, Pending: -1})
		s.logAudit(ctx, instance, &audit.Event{Kind: audit.KindStepSkipped, StepID: step.ID})
		return nil
	}

	retry := step.Retry
	if retry == nil {
		retry = definition.Retry
	}

	progress.UpdateCtx(ctx, progress.Delta{Running: 1, Pending: -1})
	for {
		attempt := instance.NextAttempt(step.ID)
		started := clock.Now()
		outputs, err := s.executeStep(ctx, instance, definition, step)
		if errors.Is(err, errCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		ended := clock.Now()
		entry := &execution.HistoryEntry{
			StepID:    step.ID,
			Attempt:   attempt,
			StartedAt: started,
			EndedAt:   ended,
			Duration:  ended.Sub(started),
			Outputs:   outputs,
		}
		if err == nil {
			entry.Status = execution.StepCompleted
			instance.AppendHistory(entry)
			progress.UpdateCtx(ctx, progress.Delta{Completed: 1, Running: -1})
			s.logAudit(ctx, instance, &audit.Event{Kind: audit.KindStepCompleted, StepID: step.ID, ModuleID: step.ModuleID})
			return nil
		}

		entry.Status = execution.StepFailed
		entry.Error = err.Error()
		instance.AppendHistory(entry)
		instance.SetStepError(step.ID, err.Error())
		s.logAudit(ctx, instance, &audit.Event{Kind: audit.KindStepFailed, StepID: step.ID, ModuleID: step.ModuleID, Error: err.Error()})

		if !retryable(err) {
			progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Running: -1})
			return &StepError{StepID: step.ID, Attempts: attempt, Err: err}
		}
		again, delay := s.shouldRetry(retry, attempt)
		if !again {
			progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Running: -1})
			return &StepError{StepID: step.ID, Attempts: attempt, Err: err}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if err := s.awaitRunnable(ctx, instance); err != nil {
			return err
		}
	}
}

// shouldRetry returns whether a further attempt is due and its delay.
// attempts counts attempts already made.
func (s *Service) shouldRetry(cfg *model.Retry, attempts int) (bool, time.Duration) {
	if cfg == nil {
		return false, 0
	}
	if strings.ToLower(cfg.Type) == "none" {
		return false, 0
	}
	// zero means unset, "retry: {type: none}" is the way to disable retries
	max := cfg.MaxRetries
	if max == 0 {
		max = defaultMaxRetries
	}
	// first attempt is not a retry
	if attempts > max {
		return false, 0
	}
	baseDelay := defaultRetryDelay
	if cfg.Delay != "" {
		if d, err := time.ParseDuration(cfg.Delay); err == nil {
			baseDelay = d
		}
	}
	switch strings.ToLower(cfg.Type) {
	case "exponential":
		mult := cfg.Multiplier
		if mult <= 1 {
			mult = 2
		}
		delay := float64(baseDelay) * math.Pow(mult, float64(attempts-1))
		if cfg.MaxDelay != "" {
			if md, err := time.ParseDuration(cfg.MaxDelay); err == nil && time.Duration(delay) > md {
				delay = float64(md)
			}
		}
		return true, time.Duration(delay)
	default:
		return true, baseDelay
	}
}

// execTimeout returns the step deadline, falling back to the engine default
// when the step declares none.
func (s *Service) execTimeout(step *model.Step) time.Duration {
	if timeout := step.ExecTimeout(); timeout > 0 {
		return timeout
	}
	return s.stepTimeout
}

// retryable reports whether an error class is worth another attempt.
// Deterministic failures (unresolved inputs, type mismatches) are not.
func retryable(err error) bool {
	switch {
	case errors.Is(err, types.ErrMissingInput),
		errors.Is(err, types.ErrTypeMismatch),
		errors.Is(err, types.ErrModuleNotFound),
		errors.Is(err, errApprovalRejected):
		return false
	}
	return true
}

// executeStep dispatches on the step kind.
func (s *Service) executeStep(ctx context.Context, instance *execution.Instance, definition *model.Workflow, step *model.Step) (map[string]interface{}, error) {
	switch step.Kind {
	case model.KindModule:
		return s.executeModuleStep(ctx, instance, step)
	case model.KindCondition:
		return s.executeConditionStep(ctx, instance, step)
	case model.KindApproval:
		return s.executeApprovalStep(ctx, instance, step)
	case model.KindParallel:
		return nil, s.executeParallel(ctx, instance, definition, step)
	case model.KindSequential:
		return nil, s.runSteps(ctx, instance, definition, step.Steps)
	}
	return nil, fmt.Errorf("step %v has unsupported kind %v", step.ID, step.Kind)
}

func (s *Service) executeModuleStep(ctx context.Context, instance *execution.Instance, step *model.Step) (map[string]interface{}, error) {
	inputs, err := s.resolveInputs(ctx, instance, step)
	if err != nil {
		return nil, err
	}
	session := instance.Session
	invocation := &types.Invocation{
		ModuleID:    step.ModuleID,
		Inputs:      inputs,
		StudyID:     session.StudyID,
		Initiator:   session.UserID,
		Environment: session.Environment,
		StartedAt:   clock.Now(),
	}
	result, err := s.modules.Execute(ctx, invocation, s.execTimeout(step))
	if err != nil {
		return nil, err
	}
	// a cancellation issued while the module ran discards its result, the
	// session must not see outputs of a cancelled instance
	if instance.GetStatus() == execution.StatusCancelled {
		return nil, errCancelled
	}
	if result.IsError() {
		return nil, fmt.Errorf("module %v reported: %v", step.ModuleID, strings.Join(result.Errors, "; "))
	}
	return s.applyOutputs(ctx, instance, step, result.Payload)
}

func (s *Service) executeConditionStep(ctx context.Context, instance *execution.Instance, step *model.Step) (map[string]interface{}, error) {
	value := evaluator.AsBool(step.Expr, s.scope(instance))
	payload := map[string]interface{}{"result": value}
	instance.Session.SetStepOutput(step.ID, "result", value)
	if len(step.Outputs) == 0 {
		return payload, nil
	}
	// declared outputs each publish the boolean
	for _, output := range step.Outputs {
		payload[output.PayloadField()] = value
	}
	return s.applyOutputs(ctx, instance, step, payload)
}

var errApprovalRejected = errors.New("approval rejected")

func (s *Service) executeApprovalStep(ctx context.Context, instance *execution.Instance, step *model.Step) (map[string]interface{}, error) {
	if s.approvals == nil {
		return nil, fmt.Errorf("step %v requires an approval service", step.ID)
	}
	request := &approval.Request{
		ID:         fmt.Sprintf("%v/%v", instance.ID, step.ID),
		InstanceID: instance.ID,
		WorkflowID: instance.WorkflowID,
		StepID:     step.ID,
		Prompt:     step.Prompt,
		CreatedAt:  clock.Now(),
	}
	if err := s.approvals.RequestApproval(ctx, request); err != nil {
		return nil, err
	}
	if err := instance.SetStatus(execution.StatusAwaitingApproval); err != nil {
		return nil, err
	}
	_ = s.instanceDAO.Save(ctx, instance)
	s.logAudit(ctx, instance, &audit.Event{Kind: audit.KindApprovalRequested, StepID: step.ID})

	decision, err := s.awaitDecision(ctx, instance, request.ID, step)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, instance, &audit.Event{
		Kind: audit.KindApprovalDecided, StepID: step.ID,
		Detail: map[string]interface{}{"approved": decision.Approved, "reason": decision.Reason},
	})
	if resumeErr := instance.SetStatus(execution.StatusRunning); resumeErr != nil {
		return nil, resumeErr
	}
	if !decision.Approved {
		return nil, fmt.Errorf("step %v: %w: %v", step.ID, errApprovalRejected, decision.Reason)
	}
	payload := map[string]interface{}{
		"approved":  true,
		"reason":    decision.Reason,
		"decidedAt": decision.DecidedAt,
	}
	return s.applyOutputs(ctx, instance, step, payload)
}

// awaitDecision parks the step until a decision arrives, the step deadline
// passes or the instance gets cancelled.
func (s *Service) awaitDecision(ctx context.Context, instance *execution.Instance, requestID string, step *model.Step) (*approval.Decision, error) {
	var expiry time.Time
	if timeout := s.execTimeout(step); timeout > 0 {
		expiry = time.Now().Add(timeout)
	}
	for {
		decision, err := s.approvals.Decision(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			return decision, nil
		}
		if instance.GetStatus() == execution.StatusCancelled {
			return nil, errCancelled
		}
		if !expiry.IsZero() && time.Now().After(expiry) {
			return nil, fmt.Errorf("approval for step %v timed out", step.ID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollFrequency):
		}
	}
}

// executeParallel fans the sub-steps out and joins them, returning the
// first failure.
func (s *Service) executeParallel(ctx context.Context, instance *execution.Instance, definition *model.Workflow, step *model.Step) error {
	var wg sync.WaitGroup
	errs := make([]error, len(step.Steps))
	for i, child := range step.Steps {
		wg.Add(1)
		go func(i int, child *model.Step) {
			defer wg.Done()
			if instance.Executed(child.ID) {
				return
			}
			errs[i] = s.runStep(ctx, instance, definition, child)
		}(i, child)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// scope assembles the expression evaluation scope: context values, step
// outputs under "steps" and the shared namespace under "shared".
func (s *Service) scope(instance *execution.Instance) map[string]interface{} {
	scope := instance.Session.Snapshot()
	steps := make(map[string]interface{})
	for stepID, outputs := range instance.Session.StepOutputsSnapshot() {
		steps[stepID] = outputs
	}
	scope["steps"] = steps
	scope["shared"] = instance.Session.SharedSnapshot()
	return scope
}

func (s *Service) evaluateGuard(expr string, parameters map[string]interface{}) bool {
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	return evaluator.AsBool(expr, parameters)
}
