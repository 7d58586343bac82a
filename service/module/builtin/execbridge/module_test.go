package execbridge

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modflow/modflow/model/types"
)

func TestModule_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
	module := New(nil)
	ctx := context.Background()
	require.NoError(t, module.Init(ctx))
	defer func() { _ = module.Destroy(ctx) }()

	result, err := module.Execute(ctx, &types.Invocation{
		ModuleID: "exec-bridge",
		Inputs:   map[string]any{"commands": []string{"echo alpha", "echo beta"}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Status)
	stdout, _ := result.Payload["stdout"].(string)
	assert.Contains(t, stdout, "alpha")
	assert.Contains(t, stdout, "beta")
	assert.Equal(t, 0, result.Payload["status"])
}

func TestModule_Execute_failedCommandStopsSequence(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
	module := New(nil)
	ctx := context.Background()
	require.NoError(t, module.Init(ctx))
	defer func() { _ = module.Destroy(ctx) }()

	result, err := module.Execute(ctx, &types.Invocation{
		ModuleID: "exec-bridge",
		Inputs:   map[string]any{"commands": []interface{}{"false", "echo never"}},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError())
	stdout, _ := result.Payload["stdout"].(string)
	assert.NotContains(t, stdout, "never")
}

func TestModule_Execute_requiresInit(t *testing.T) {
	module := New(nil)
	_, err := module.Execute(context.Background(), &types.Invocation{
		Inputs: map[string]any{"commands": "echo hello"},
	})
	assert.Error(t, err)
}

func TestCommandsInput(t *testing.T) {
	_, err := commandsInput(&types.Invocation{Inputs: map[string]any{}})
	assert.Error(t, err)

	commands, err := commandsInput(&types.Invocation{Inputs: map[string]any{"commands": "ls"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ls"}, commands)

	_, err = commandsInput(&types.Invocation{Inputs: map[string]any{"commands": []interface{}{"ls", 42}}})
	assert.Error(t, err)

	_, err = commandsInput(&types.Invocation{Inputs: map[string]any{"commands": 42}})
	assert.Error(t, err)
}
