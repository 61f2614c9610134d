package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/domain"
)

func TestCreateConversationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newRouteCompleter())

	first, created, err := svc.CreateConversation(ctx, "u1", domain.CreateConversationRequest{ConversationID: "c1", Title: "Verbs"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Verbs", first.Title)
	assert.Equal(t, domain.DefaultConversationDesc, first.Description)
	assert.Equal(t, domain.DifficultyMedium, first.State.DifficultyLevel)

	second, created, err := svc.CreateConversation(ctx, "u1", domain.CreateConversationRequest{ConversationID: "c1", Title: "Other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Verbs", second.Title)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	_, _, err = svc.CreateConversation(ctx, "u2", domain.CreateConversationRequest{ConversationID: "c1"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGetOrCreateConversationReturnsHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newRouteCompleter())

	got, err := svc.GetOrCreateConversation(ctx, "u1", domain.CreateConversationRequest{ConversationID: "c1"}, 0)
	require.NoError(t, err)
	assert.True(t, got.Created)
	assert.NotNil(t, got.Messages)
	assert.Empty(t, got.Messages)

	for i := 0; i < 3; i++ {
		_, err := svc.ProcessMessage(ctx, "u1", domain.ProcessMessageRequest{ConversationID: "c1", Message: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	got, err = svc.GetOrCreateConversation(ctx, "u1", domain.CreateConversationRequest{ConversationID: "c1"}, 4)
	require.NoError(t, err)
	assert.False(t, got.Created)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "m1", got.Messages[0].Content)
}

func TestGetConversation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newRouteCompleter())

	_, err := svc.GetConversation(ctx, "u1", "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.ProcessMessage(ctx, "u1", domain.ProcessMessageRequest{ConversationID: "c1", Message: "Olá"})
	require.NoError(t, err)

	got, err := svc.GetConversation(ctx, "u1", "c1", 1000)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	_, err = svc.GetConversation(ctx, "u2", "c1", 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	state, err := svc.GetState(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.DifficultyMedium, state.DifficultyLevel)
}

func TestListConversationsByOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newRouteCompleter())

	for _, id := range []string{"a", "b"} {
		_, _, err := svc.CreateConversation(ctx, "u1", domain.CreateConversationRequest{ConversationID: id})
		require.NoError(t, err)
	}
	_, _, err := svc.CreateConversation(ctx, "u2", domain.CreateConversationRequest{ConversationID: "c"})
	require.NoError(t, err)

	convs, err := svc.ListConversations(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, convs, 2)

	require.NoError(t, svc.Ping(ctx))
}

func TestHistoryLimit(t *testing.T) {
	assert.Equal(t, domain.DefaultHistoryLimit, historyLimit(0))
	assert.Equal(t, domain.DefaultHistoryLimit, historyLimit(-3))
	assert.Equal(t, 7, historyLimit(7))
	assert.Equal(t, domain.MaxHistoryLimit, historyLimit(500))
}

func TestEndToEndWithMockClient(t *testing.T) {
	ctx := context.Background()
	gw := completion.NewGateway(llm.NewMockClient(), "mock", 0.7, nil)
	svc, _ := newTestService(t, gw)

	resp, err := svc.ProcessMessage(ctx, "u1", domain.ProcessMessageRequest{ConversationID: "c1", Message: "Give me multiple choice questions about nouns"})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentMultipleChoice, resp.Intent)
	require.Len(t, resp.Questions, domain.DefaultNumQuestions)

	q := resp.Questions[0]
	eval, err := svc.EvaluateAnswer(ctx, "u1", domain.EvaluateAnswerRequest{ConversationID: "c1", QuestionID: q.ID, Answer: "casa"})
	require.NoError(t, err)
	assert.True(t, eval.Evaluation.IsCorrect)
	assert.NotEmpty(t, eval.Evaluation.Explanation)

	resp, err = svc.ProcessMessage(ctx, "u1", domain.ProcessMessageRequest{ConversationID: "c1", Message: "How is the weather?"})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentOffTopic, resp.Intent)
}
