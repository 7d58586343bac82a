package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowBuilder(t *testing.T) {
	definition := NewWorkflow("protocol-review").
		WithName("Protocol review").
		WithVersion("1.2.0").
		WithTimeout("90s").
		WithRetry(&Retry{Type: "fixed", MaxRetries: 2, Delay: "10ms"}).
		WithEventTrigger("document.uploaded", "${documentType == 'protocol'}")

	definition.NewModuleStep("extract", "text-extract").
		WithInput("document", SourceContext, "documentText").
		WithOutput("title", TargetContext, "title").
		WithRetry("exponential", 3, "5ms").
		WithTimeout("10s")
	definition.NewStep("check", KindCondition).
		WithExpr("${len(title) > 0}")
	definition.NewStep("signoff", KindApproval).
		WithPrompt("Approve extracted title").
		WithWhen("${steps.check.result}")

	require.Empty(t, definition.Validate())
	assert.Equal(t, "protocol-review", definition.ID)
	assert.Len(t, definition.Steps, 3)

	extract := definition.Step("extract")
	require.NotNil(t, extract)
	assert.Equal(t, KindModule, extract.Kind)
	assert.Equal(t, "text-extract", extract.ModuleID)
	require.Len(t, extract.Inputs, 1)
	assert.Equal(t, SourceContext, extract.Inputs[0].Source)
	require.NotNil(t, extract.Retry)
	assert.Equal(t, 3, extract.Retry.MaxRetries)

	triggers := definition.EventTriggers("document.uploaded")
	require.Len(t, triggers, 1)
	assert.Equal(t, "${documentType == 'protocol'}", triggers[0].When)
}

func TestStepBuilder_subSteps(t *testing.T) {
	definition := NewWorkflow("fanout")
	parallel := definition.NewStep("both", KindParallel)
	parallel.AddSubStep("left", KindModule).ModuleID = "nop"
	parallel.AddSubStep("right", KindModule).ModuleID = "nop"

	require.Empty(t, definition.Validate())
	require.Len(t, parallel.Steps, 2)
	assert.Equal(t, "left", parallel.Steps[0].ID)
	assert.NotNil(t, definition.Step("right"))
}
