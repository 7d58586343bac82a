package textract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modflow/modflow/model/types"
	"github.com/modflow/modflow/service/registry"
)

const sampleText = `Study Protocol CT-2024-117
Sponsor: Meridian Therapeutics
Phase: III
Enrollment target: 420 subjects`

func TestModule_Execute(t *testing.T) {
	module := New(map[string]string{
		"protocolId": `Protocol (CT-\d{4}-\d+)`,
		"phase":      `Phase: (\w+)`,
	})
	require.NoError(t, module.Init(context.Background()))

	result, err := module.Execute(context.Background(), &types.Invocation{
		ModuleID: "text-extract",
		Inputs:   map[string]any{"text": sampleText},
	})
	require.NoError(t, err)
	assert.Equal(t, types.ResultSuccess, result.Status)
	assert.Equal(t, "CT-2024-117", result.Payload["protocolId"])
	assert.Equal(t, "III", result.Payload["phase"])
	require.NotNil(t, result.Metrics)
	assert.Equal(t, int64(2), result.Metrics.Counters["patterns"])
	assert.Equal(t, int64(2), result.Metrics.Counters["matched"])
}

func TestModule_Execute_documentURL(t *testing.T) {
	module := New(map[string]string{"phase": `Phase: (\w+)`})
	require.NoError(t, module.Init(context.Background()))

	documents := &stubDocuments{entries: map[string][]byte{"protocols/ct-2024-117.txt": []byte(sampleText)}}
	ctx := registry.WithServices(context.Background(), &registry.Services{Documents: documents})

	result, err := module.Execute(ctx, &types.Invocation{
		ModuleID: "text-extract",
		Inputs:   map[string]any{"documentURL": "protocols/ct-2024-117.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "III", result.Payload["phase"])

	// without a document store in context the reference cannot be resolved
	_, err = module.Execute(context.Background(), &types.Invocation{
		ModuleID: "text-extract",
		Inputs:   map[string]any{"documentURL": "protocols/ct-2024-117.txt"},
	})
	assert.ErrorContains(t, err, "document store")

	_, err = module.Execute(ctx, &types.Invocation{
		ModuleID: "text-extract",
		Inputs:   map[string]any{"documentURL": "protocols/absent.txt"},
	})
	assert.Error(t, err)
}

type stubDocuments struct {
	entries map[string][]byte
}

func (s *stubDocuments) Read(ctx context.Context, URL string) ([]byte, error) {
	data, ok := s.entries[URL]
	if !ok {
		return nil, fmt.Errorf("document %v not found", URL)
	}
	return data, nil
}

func (s *stubDocuments) Write(ctx context.Context, URL string, data []byte) error {
	s.entries[URL] = data
	return nil
}

func TestModule_Execute_invocationPatterns(t *testing.T) {
	module := New(nil)
	require.NoError(t, module.Init(context.Background()))

	result, err := module.Execute(context.Background(), &types.Invocation{
		ModuleID: "text-extract",
		Inputs: map[string]any{
			"text": sampleText,
			"patterns": map[string]interface{}{
				"sponsor":    `Sponsor: (.+)`,
				"enrollment": `target: (\d+)`,
				"absent":     `Placebo arm: (\w+)`,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Meridian Therapeutics", result.Payload["sponsor"])
	assert.Equal(t, "420", result.Payload["enrollment"])

	// an unmatched pattern downgrades the result to a warning
	assert.Equal(t, types.ResultWarning, result.Status)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "absent")
	assert.Equal(t, int64(2), result.Metrics.Counters["matched"])
}

func TestModule_Execute_badInputs(t *testing.T) {
	module := New(nil)
	require.NoError(t, module.Init(context.Background()))

	_, err := module.Execute(context.Background(), &types.Invocation{Inputs: map[string]any{}})
	assert.Error(t, err)

	_, err = module.Execute(context.Background(), &types.Invocation{Inputs: map[string]any{"text": 17}})
	assert.Error(t, err)

	_, err = module.Execute(context.Background(), &types.Invocation{Inputs: map[string]any{
		"text":     sampleText,
		"patterns": map[string]interface{}{"broken": "("},
	}})
	assert.Error(t, err)
}

func TestModule_Init_rejectsInvalidPattern(t *testing.T) {
	module := New(map[string]string{"broken": "("})
	assert.Error(t, module.Init(context.Background()))
}
