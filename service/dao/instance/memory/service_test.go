package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modflow/modflow/model"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/dao"
)

func newInstance(id, workflowID, studyID string) *execution.Instance {
	definition := &model.Workflow{
		ID:    workflowID,
		Steps: []*model.Step{{ID: "one", Kind: model.KindModule, ModuleID: "nop"}},
	}
	parameters := map[string]interface{}{}
	if studyID != "" {
		parameters["studyId"] = studyID
	}
	return execution.NewInstance(id, definition, parameters)
}

func TestService_SaveLoadDelete(t *testing.T) {
	service := New()
	ctx := context.Background()

	instance := newInstance("wf/1", "wf", "")
	require.NoError(t, service.Save(ctx, instance))

	loaded, err := service.Load(ctx, "wf/1")
	require.NoError(t, err)
	assert.Equal(t, instance, loaded)

	_, err = service.Load(ctx, "wf/2")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	assert.ErrorIs(t, service.Save(ctx, nil), dao.ErrNilEntity)

	require.NoError(t, service.Delete(ctx, "wf/1"))
	_, err = service.Load(ctx, "wf/1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestService_List_filters(t *testing.T) {
	service := New()
	ctx := context.Background()

	first := newInstance("review/1", "review", "study-1")
	second := newInstance("review/2", "review", "study-2")
	third := newInstance("intake/1", "intake", "study-1")
	require.NoError(t, first.SetStatus(execution.StatusRunning))
	for _, instance := range []*execution.Instance{first, second, third} {
		require.NoError(t, service.Save(ctx, instance))
	}

	all, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byWorkflow, err := service.List(ctx, dao.NewParameter("workflowId", "review"))
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)

	byStudy, err := service.List(ctx, dao.NewParameter("studyId", "study-1"))
	require.NoError(t, err)
	assert.Len(t, byStudy, 2)

	running, err := service.List(ctx, dao.NewParameter("status", string(execution.StatusRunning)))
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "review/1", running[0].ID)

	both, err := service.List(ctx, dao.NewParameter("workflowId", "review"), dao.NewParameter("studyId", "study-1"))
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "review/1", both[0].ID)
}
