package model

// NewWorkflow creates a new workflow definition with the given id.
func NewWorkflow(id string) *Workflow {
	return &Workflow{ID: id}
}

// WithName sets the display name of the workflow.
func (w *Workflow) WithName(name string) *Workflow {
	w.Name = name
	return w
}

// WithDescription sets the description of the workflow.
func (w *Workflow) WithDescription(description string) *Workflow {
	w.Description = description
	return w
}

// WithVersion sets the version of the workflow.
func (w *Workflow) WithVersion(version string) *Workflow {
	w.Version = version
	return w
}

// WithWhen guards the workflow with an expression evaluated against the
// start parameters.
func (w *Workflow) WithWhen(expr string) *Workflow {
	w.When = expr
	return w
}

// WithTimeout bounds a whole instance run.
func (w *Workflow) WithTimeout(timeout string) *Workflow {
	w.Timeout = timeout
	return w
}

// WithRetry sets the default retry policy inherited by steps without their
// own.
func (w *Workflow) WithRetry(retry *Retry) *Workflow {
	w.Retry = retry
	return w
}

// WithConfig adds a workflow-level configuration entry.
func (w *Workflow) WithConfig(key string, value interface{}) *Workflow {
	if w.Config == nil {
		w.Config = make(map[string]interface{})
	}
	w.Config[key] = value
	return w
}

// WithEventTrigger declares an event trigger starting instances of this
// workflow.
func (w *Workflow) WithEventTrigger(eventType, when string) *Workflow {
	w.Triggers = append(w.Triggers, &Trigger{Kind: TriggerEvent, Event: eventType, When: when})
	return w
}

// NewStep creates a step of the given kind and appends it to the workflow.
func (w *Workflow) NewStep(id string, kind StepKind) *Step {
	step := &Step{ID: id, Kind: kind}
	w.Steps = append(w.Steps, step)
	return step
}

// NewModuleStep appends a module step invoking the identified module.
func (w *Workflow) NewModuleStep(id, moduleID string) *Step {
	step := w.NewStep(id, KindModule)
	step.ModuleID = moduleID
	return step
}

// WithWhen guards the step with an expression.
func (s *Step) WithWhen(expr string) *Step {
	s.When = expr
	return s
}

// WithExpr sets the expression a condition step evaluates.
func (s *Step) WithExpr(expr string) *Step {
	s.Expr = expr
	return s
}

// WithPrompt sets the prompt shown with an approval request.
func (s *Step) WithPrompt(prompt string) *Step {
	s.Prompt = prompt
	return s
}

// WithTimeout bounds step execution.
func (s *Step) WithTimeout(timeout string) *Step {
	s.Timeout = timeout
	return s
}

// WithRetry overrides the workflow retry policy for this step.
func (s *Step) WithRetry(retryType string, maxRetries int, delay string) *Step {
	s.Retry = &Retry{Type: retryType, MaxRetries: maxRetries, Delay: delay}
	return s
}

// WithInput declares an input resolved from the given source before
// execution.
func (s *Step) WithInput(name string, source InputSource, key string) *Step {
	s.Inputs = append(s.Inputs, &Input{Name: name, Source: source, Key: key})
	return s
}

// WithOutput publishes a payload field to the given target under name.
func (s *Step) WithOutput(name string, target OutputTarget, field string) *Step {
	s.Outputs = append(s.Outputs, &Output{Name: name, Target: target, Field: field})
	return s
}

// AddSubStep appends a child step to a parallel or sequential step.
func (s *Step) AddSubStep(id string, kind StepKind) *Step {
	child := &Step{ID: id, Kind: kind}
	s.Steps = append(s.Steps, child)
	return child
}
