package model

import (
	"fmt"

	"github.com/modflow/modflow/model/binding"
	"gopkg.in/yaml.v3"
)

// InputSource enumerates where a step input value gets resolved from.
type InputSource string

const (
	SourceContext InputSource = "context"
	SourceStep    InputSource = "step"
	SourceUser    InputSource = "user"
	SourceService InputSource = "service"
)

// OutputTarget enumerates where a step output value gets written.
type OutputTarget string

const (
	TargetContext OutputTarget = "context"
	TargetService OutputTarget = "service"
	TargetShared  OutputTarget = "shared"
)

// Input declares a value a step needs before it runs.
type Input struct {
	Name     string      `json:"name" yaml:"name"`
	DataType string      `json:"type,omitempty" yaml:"type,omitempty"`
	Required bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Source   InputSource `json:"source,omitempty" yaml:"source,omitempty"`
	// Key addresses the value within the source; for step sources it is
	// "stepId.field", for the rest a plain key
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// Output declares where a step writes a result value.
type Output struct {
	Name     string       `json:"name" yaml:"name"`
	DataType string       `json:"type,omitempty" yaml:"type,omitempty"`
	Target   OutputTarget `json:"target,omitempty" yaml:"target,omitempty"`
	Key      string       `json:"key,omitempty" yaml:"key,omitempty"`
	// Field selects the payload field to publish; empty defaults to Name,
	// "*" publishes the whole payload
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
}

// UnmarshalYAML accepts either a mapping or the compact declaration form
// "name[type](source/key)" with an optional "!" required marker.
func (i *Input) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		decl, err := binding.Parse(node.Value)
		if err != nil {
			return fmt.Errorf("invalid input declaration %q: %w", node.Value, err)
		}
		i.Name = decl.Name
		i.DataType = decl.DataType
		i.Required = decl.Required
		if decl.Location != nil {
			i.Source = InputSource(decl.Location.Kind)
			i.Key = decl.Location.In
		}
		return nil
	}
	type alias Input
	var value alias
	if err := node.Decode(&value); err != nil {
		return err
	}
	*i = Input(value)
	return nil
}

// ResolvedKey returns the lookup key, defaulting to the input name.
func (i *Input) ResolvedKey() string {
	if i.Key != "" {
		return i.Key
	}
	return i.Name
}

// ResolvedKey returns the write key, defaulting to the output name.
func (o *Output) ResolvedKey() string {
	if o.Key != "" {
		return o.Key
	}
	return o.Name
}

// PayloadField returns the payload field to publish, defaulting to the name.
func (o *Output) PayloadField() string {
	if o.Field != "" {
		return o.Field
	}
	return o.Name
}

// WholePayload reports whether the output publishes the entire payload.
func (o *Output) WholePayload() bool { return o.Field == "*" }
