package engine

import (
	"context"
	"fmt"

	"github.com/modflow/modflow/model"
	"github.com/modflow/modflow/model/types"
	"github.com/modflow/modflow/runtime/execution"
)

// resolveInputs resolves a step's declared inputs from their sources and
// coerces them to their declared types. A missing required input fails
// before any module invocation.
func (s *Service) resolveInputs(ctx context.Context, instance *execution.Instance, step *model.Step) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(step.Inputs))
	for _, input := range step.Inputs {
		value, found, err := s.resolveInput(ctx, instance, input)
		if err != nil {
			return nil, err
		}
		if !found {
			if input.Required {
				return nil, types.NewMissingInputError(step.ID, input.Name)
			}
			continue
		}
		typed, err := instance.Session.TypedValue(input.DataType, value)
		if err != nil {
			return nil, types.NewTypeMismatchError(step.ID, input.Name, input.DataType, value)
		}
		resolved[input.Name] = typed
	}
	return resolved, nil
}

func (s *Service) resolveInput(ctx context.Context, instance *execution.Instance, input *model.Input) (interface{}, bool, error) {
	session := instance.Session
	key := input.ResolvedKey()
	switch input.Source {
	case model.SourceContext, "":
		value, ok := session.Get(key)
		return value, ok, nil
	case model.SourceStep:
		value, ok := session.StepOutput(key)
		return value, ok, nil
	case model.SourceUser:
		value, ok := instance.Parameters[key]
		return value, ok, nil
	case model.SourceService:
		if s.external == nil {
			return nil, false, fmt.Errorf("input %v needs an external resolver", input.Name)
		}
		return s.external.Resolve(ctx, key)
	}
	return nil, false, fmt.Errorf("input %v has unknown source %v", input.Name, input.Source)
}

// applyOutputs publishes declared outputs from a result payload and records
// them as step outputs. Without declarations the whole payload lands in the
// step outputs only.
func (s *Service) applyOutputs(ctx context.Context, instance *execution.Instance, step *model.Step, payload map[string]interface{}) (map[string]interface{}, error) {
	session := instance.Session
	if len(step.Outputs) == 0 {
		for field, value := range payload {
			session.SetStepOutput(step.ID, field, value)
		}
		return payload, nil
	}
	published := make(map[string]interface{}, len(step.Outputs))
	for _, output := range step.Outputs {
		var value interface{}
		if output.WholePayload() {
			value = payload
		} else {
			field, ok := payload[output.PayloadField()]
			if !ok {
				return nil, fmt.Errorf("step %v output %v: field %q absent from payload", step.ID, output.Name, output.PayloadField())
			}
			value = field
		}
		typed, err := session.TypedValue(output.DataType, value)
		if err != nil {
			return nil, types.NewTypeMismatchError(step.ID, output.Name, output.DataType, value)
		}
		key := output.ResolvedKey()
		switch output.Target {
		case model.TargetContext, "":
			session.Set(key, typed)
		case model.TargetShared:
			session.SetShared(key, typed)
		case model.TargetService:
			if s.external == nil {
				return nil, fmt.Errorf("output %v needs an external resolver", output.Name)
			}
			if err := s.external.Publish(ctx, key, typed); err != nil {
				return nil, fmt.Errorf("failed to publish output %v: %w", output.Name, err)
			}
		default:
			return nil, fmt.Errorf("output %v has unknown target %v", output.Name, output.Target)
		}
		session.SetStepOutput(step.ID, output.Name, typed)
		published[output.Name] = typed
	}
	return published, nil
}
