package model

import (
	"fmt"
	"time"
)

// StepKind enumerates the supported step behaviours.
type StepKind string

const (
	KindModule     StepKind = "module"
	KindApproval   StepKind = "approval"
	KindCondition  StepKind = "condition"
	KindParallel   StepKind = "parallel"
	KindSequential StepKind = "sequential"
)

// Step is a single unit of work inside a workflow.
type Step struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        StepKind `json:"kind" yaml:"kind"`

	// ModuleID names the module a module step invokes
	ModuleID string `json:"moduleId,omitempty" yaml:"moduleId,omitempty"`

	// Inputs declare the values resolved before execution
	Inputs []*Input `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Outputs declare where execution results get written
	Outputs []*Output `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// When guards the step; false or unresolved skips it
	When string `json:"when,omitempty" yaml:"when,omitempty"`

	// Expr is the expression a condition step evaluates
	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`

	// Prompt is shown with an approval request
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// Timeout bounds step execution (duration string)
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Retry overrides the workflow retry policy for this step
	Retry *Retry `json:"retry,omitempty" yaml:"retry,omitempty"`

	// Steps hold the children of parallel and sequential steps
	Steps []*Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Retry strategy for a step.
type Retry struct {
	Type string `json:"type,omitempty" yaml:"type,omitempty"` // fixed, exponential, none
	// MaxRetries bounds the retries after the first attempt. Zero means
	// unset and selects the engine default; use Type "none" to disable
	// retries altogether.
	MaxRetries int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	Delay      string  `json:"delay,omitempty" yaml:"delay,omitempty"`           // base delay (duration string)
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"` // exponential multiplier (>1)
	MaxDelay   string  `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
}

// ExecTimeout parses the step timeout, zero when unset or invalid.
func (s *Step) ExecTimeout() time.Duration {
	if s.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0
	}
	return d
}

func (s *Step) validate() []error {
	var issues []error
	switch s.Kind {
	case KindModule:
		if s.ModuleID == "" {
			issues = append(issues, fmt.Errorf("module step %s has no moduleId", s.ID))
		}
	case KindCondition:
		if s.Expr == "" {
			issues = append(issues, fmt.Errorf("condition step %s has no expr", s.ID))
		}
	case KindParallel, KindSequential:
		if len(s.Steps) == 0 {
			issues = append(issues, fmt.Errorf("%s step %s has no sub-steps", s.Kind, s.ID))
		}
	case KindApproval:
	default:
		issues = append(issues, fmt.Errorf("step %s has unknown kind %q", s.ID, s.Kind))
	}
	for _, input := range s.Inputs {
		if input.Name == "" {
			issues = append(issues, fmt.Errorf("step %s has unnamed input", s.ID))
		}
		switch input.Source {
		case SourceContext, SourceStep, SourceUser, SourceService, "":
		default:
			issues = append(issues, fmt.Errorf("step %s input %s has unknown source %q", s.ID, input.Name, input.Source))
		}
	}
	for _, output := range s.Outputs {
		if output.Name == "" {
			issues = append(issues, fmt.Errorf("step %s has unnamed output", s.ID))
		}
		switch output.Target {
		case TargetContext, TargetService, TargetShared, "":
		default:
			issues = append(issues, fmt.Errorf("step %s output %s has unknown target %q", s.ID, output.Name, output.Target))
		}
	}
	return issues
}
