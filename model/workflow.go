package model

import (
	"fmt"
	"time"
)

// Workflow is an immutable definition of an ordered sequence of steps.
type Workflow struct {
	// Source provides information about the origin of the definition
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// ID is the unique identifier for the workflow
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable label
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description provides a human-readable description of the workflow
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the workflow version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Steps define the ordered execution sequence
	Steps []*Step `json:"steps,omitempty" yaml:"steps,omitempty"`

	// Triggers declare how instances of this workflow get started
	Triggers []*Trigger `json:"triggers,omitempty" yaml:"triggers,omitempty"`

	// When guards the whole workflow; an empty expression always passes
	When string `json:"when,omitempty" yaml:"when,omitempty"`

	// Timeout bounds a whole instance run (duration string)
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Retry is the default retry policy inherited by steps without their own
	Retry *Retry `json:"retry,omitempty" yaml:"retry,omitempty"`

	// Config contains workflow-level configuration
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// Source describes where a workflow definition was loaded from.
type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// TriggerKind enumerates the supported instance start mechanisms.
type TriggerKind string

const (
	TriggerManual   TriggerKind = "manual"
	TriggerSchedule TriggerKind = "schedule"
	TriggerEvent    TriggerKind = "event"
)

// Trigger declares one way an instance of the workflow can be started.
type Trigger struct {
	Kind TriggerKind `json:"kind" yaml:"kind"`
	// Event names the event type an event trigger matches
	Event string `json:"event,omitempty" yaml:"event,omitempty"`
	// When optionally filters matches by payload expression
	When string `json:"when,omitempty" yaml:"when,omitempty"`
	// Schedule holds a cron-like expression for schedule triggers
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	// Parameters seed the instance session on trigger
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Step lookup by id, nil when absent.
func (w *Workflow) Step(id string) *Step {
	var find func(steps []*Step) *Step
	find = func(steps []*Step) *Step {
		for _, step := range steps {
			if step.ID == id {
				return step
			}
			if found := find(step.Steps); found != nil {
				return found
			}
		}
		return nil
	}
	return find(w.Steps)
}

// EventTriggers returns the workflow triggers matching the supplied event type.
func (w *Workflow) EventTriggers(eventType string) []*Trigger {
	var matched []*Trigger
	for _, trigger := range w.Triggers {
		if trigger.Kind == TriggerEvent && trigger.Event == eventType {
			matched = append(matched, trigger)
		}
	}
	return matched
}

// Validate performs a best-effort structural validation of the workflow. The
// returned slice is empty when the definition is sound; otherwise it contains
// human-readable error descriptions. The function does NOT evaluate any
// expressions, it only verifies static properties.
func (w *Workflow) Validate() []error {
	var issues []error
	if w.ID == "" {
		issues = append(issues, fmt.Errorf("workflow id is empty"))
	}
	if len(w.Steps) == 0 {
		issues = append(issues, fmt.Errorf("workflow %s has no steps", w.ID))
		return issues
	}
	seen := map[string]bool{}
	var walk func(steps []*Step)
	walk = func(steps []*Step) {
		for _, step := range steps {
			if step.ID == "" {
				issues = append(issues, fmt.Errorf("step without id in workflow %s", w.ID))
				continue
			}
			if seen[step.ID] {
				issues = append(issues, fmt.Errorf("duplicate step id %s", step.ID))
			}
			seen[step.ID] = true
			issues = append(issues, step.validate()...)
			walk(step.Steps)
		}
	}
	walk(w.Steps)
	for _, trigger := range w.Triggers {
		switch trigger.Kind {
		case TriggerManual, TriggerSchedule:
		case TriggerEvent:
			if trigger.Event == "" {
				issues = append(issues, fmt.Errorf("event trigger without event type in workflow %s", w.ID))
			}
		default:
			issues = append(issues, fmt.Errorf("unknown trigger kind %q in workflow %s", trigger.Kind, w.ID))
		}
	}
	return issues
}

// RunTimeout parses the workflow timeout, zero when unset or invalid.
func (w *Workflow) RunTimeout() time.Duration {
	if w.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(w.Timeout)
	if err != nil {
		return 0
	}
	return d
}
