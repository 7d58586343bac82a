package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modflow/modflow/service/approval"
)

func TestService_approvalLifecycle(t *testing.T) {
	service := New()
	ctx := context.Background()

	request := &approval.Request{
		ID:         "review/1/signoff",
		InstanceID: "review/1",
		WorkflowID: "review",
		StepID:     "signoff",
		Prompt:     "Release the report?",
	}
	require.NoError(t, service.RequestApproval(ctx, request))
	assert.False(t, request.CreatedAt.IsZero())

	pending, err := service.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "review/1/signoff", pending[0].ID)

	// no decision yet
	decision, err := service.Decision(ctx, request.ID)
	require.NoError(t, err)
	assert.Nil(t, decision)

	decided, err := service.Decide(ctx, request.ID, true, "verified against source")
	require.NoError(t, err)
	assert.True(t, decided.Approved)
	assert.False(t, decided.DecidedAt.IsZero())

	decision, err = service.Decision(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.True(t, decision.Approved)
	assert.Equal(t, "verified against source", decision.Reason)

	pending, err = service.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// a request gets a single decision
	_, err = service.Decide(ctx, request.ID, false, "changed my mind")
	assert.Error(t, err)
}

func TestService_Decide_unknownRequest(t *testing.T) {
	service := New()
	_, err := service.Decide(context.Background(), "ghost", true, "")
	assert.Error(t, err)
	_, err = service.Decide(context.Background(), "", true, "")
	assert.Error(t, err)
}

func TestService_RequestApproval_generatesID(t *testing.T) {
	service := New()
	request := &approval.Request{Prompt: "proceed?"}
	require.NoError(t, service.RequestApproval(context.Background(), request))
	assert.NotEmpty(t, request.ID)
}

func TestService_Queue_announcesActivity(t *testing.T) {
	service := New()
	ctx := context.Background()
	require.NoError(t, service.RequestApproval(ctx, &approval.Request{ID: "r1"}))
	_, err := service.Decide(ctx, "r1", false, "incomplete data")
	require.NoError(t, err)

	message, err := service.Queue().Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, approval.TopicRequestCreated, message.T().Topic)
	require.NoError(t, message.Ack())

	message, err = service.Queue().Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, approval.TopicDecisionCreated, message.T().Topic)
	require.NoError(t, message.Ack())
}
