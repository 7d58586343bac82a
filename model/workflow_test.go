package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWorkflow_Validate(t *testing.T) {
	testCases := []struct {
		description  string
		workflow     *Workflow
		expectIssues int
	}{
		{
			description: "valid workflow",
			workflow: &Workflow{
				ID: "ok",
				Steps: []*Step{
					{ID: "one", Kind: KindModule, ModuleID: "nop"},
					{ID: "two", Kind: KindCondition, Expr: "${a > 1}"},
				},
			},
		},
		{
			description:  "missing id and steps",
			workflow:     &Workflow{},
			expectIssues: 2,
		},
		{
			description: "duplicate step ids",
			workflow: &Workflow{
				ID: "dup",
				Steps: []*Step{
					{ID: "one", Kind: KindModule, ModuleID: "nop"},
					{ID: "one", Kind: KindModule, ModuleID: "nop"},
				},
			},
			expectIssues: 1,
		},
		{
			description: "module step without moduleId",
			workflow: &Workflow{
				ID:    "bad-module",
				Steps: []*Step{{ID: "one", Kind: KindModule}},
			},
			expectIssues: 1,
		},
		{
			description: "condition step without expr",
			workflow: &Workflow{
				ID:    "bad-condition",
				Steps: []*Step{{ID: "one", Kind: KindCondition}},
			},
			expectIssues: 1,
		},
		{
			description: "parallel step without children",
			workflow: &Workflow{
				ID:    "bad-parallel",
				Steps: []*Step{{ID: "one", Kind: KindParallel}},
			},
			expectIssues: 1,
		},
		{
			description: "unknown input source",
			workflow: &Workflow{
				ID: "bad-source",
				Steps: []*Step{{
					ID: "one", Kind: KindModule, ModuleID: "nop",
					Inputs: []*Input{{Name: "value", Source: "cloud"}},
				}},
			},
			expectIssues: 1,
		},
		{
			description: "event trigger without event type",
			workflow: &Workflow{
				ID:       "bad-trigger",
				Steps:    []*Step{{ID: "one", Kind: KindModule, ModuleID: "nop"}},
				Triggers: []*Trigger{{Kind: TriggerEvent}},
			},
			expectIssues: 1,
		},
	}

	for _, testCase := range testCases {
		issues := testCase.workflow.Validate()
		assert.Len(t, issues, testCase.expectIssues, testCase.description)
	}
}

func TestWorkflow_Step(t *testing.T) {
	workflow := &Workflow{
		ID: "lookup",
		Steps: []*Step{
			{ID: "outer", Kind: KindSequential, Steps: []*Step{
				{ID: "inner", Kind: KindModule, ModuleID: "nop"},
			}},
		},
	}
	require.NotNil(t, workflow.Step("outer"))
	inner := workflow.Step("inner")
	require.NotNil(t, inner)
	assert.Equal(t, "nop", inner.ModuleID)
	assert.Nil(t, workflow.Step("missing"))
}

func TestWorkflow_EventTriggers(t *testing.T) {
	workflow := &Workflow{
		ID:    "triggered",
		Steps: []*Step{{ID: "one", Kind: KindModule, ModuleID: "nop"}},
		Triggers: []*Trigger{
			{Kind: TriggerEvent, Event: "document.uploaded"},
			{Kind: TriggerEvent, Event: "study.closed"},
			{Kind: TriggerManual},
		},
	}
	matched := workflow.EventTriggers("document.uploaded")
	require.Len(t, matched, 1)
	assert.Equal(t, "document.uploaded", matched[0].Event)
	assert.Empty(t, workflow.EventTriggers("unknown.event"))
}

func TestWorkflow_RunTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), (&Workflow{}).RunTimeout())
	assert.Equal(t, 90*time.Second, (&Workflow{Timeout: "90s"}).RunTimeout())
	assert.Equal(t, time.Duration(0), (&Workflow{Timeout: "soon"}).RunTimeout())
}

func TestInput_UnmarshalYAML(t *testing.T) {
	var step Step
	encoded := `
id: extract
kind: module
moduleId: text-extract
inputs:
  - document![string](context/documentText)
  - name: threshold
    type: float
    source: user
    key: minScore
outputs:
  - name: title
    target: context
`
	require.NoError(t, yaml.Unmarshal([]byte(encoded), &step))
	require.Len(t, step.Inputs, 2)

	compact := step.Inputs[0]
	assert.Equal(t, "document", compact.Name)
	assert.Equal(t, "string", compact.DataType)
	assert.True(t, compact.Required)
	assert.Equal(t, SourceContext, compact.Source)
	assert.Equal(t, "documentText", compact.Key)

	mapped := step.Inputs[1]
	assert.Equal(t, "threshold", mapped.Name)
	assert.Equal(t, "float", mapped.DataType)
	assert.False(t, mapped.Required)
	assert.Equal(t, SourceUser, mapped.Source)
	assert.Equal(t, "minScore", mapped.Key)

	require.Len(t, step.Outputs, 1)
	assert.Equal(t, "title", step.Outputs[0].Name)
	assert.Equal(t, TargetContext, step.Outputs[0].Target)
}

func TestOutput_helpers(t *testing.T) {
	output := &Output{Name: "summary"}
	assert.Equal(t, "summary", output.ResolvedKey())
	assert.Equal(t, "summary", output.PayloadField())
	assert.False(t, output.WholePayload())

	output = &Output{Name: "payload", Key: "result.payload", Field: "*"}
	assert.Equal(t, "result.payload", output.ResolvedKey())
	assert.True(t, output.WholePayload())
}
