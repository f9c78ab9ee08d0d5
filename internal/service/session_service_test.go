package service

import (
	"context"
	"testing"
	"time"

	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCreateDefaultsTitle(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewSessionService(factory)

	res, err := svc.Create(context.Background(), &dto.CreateSessionRequest{})
	require.NoError(t, err)

	assert.Equal(t, defaultSessionTitle, res.Title)
	assert.NotEqual(t, uuid.Nil, res.Id)
	assert.Len(t, factory.uow.sessions.store, 1)
}

func TestSessionUpdateTitleAndArchived(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewSessionService(factory)

	created, err := svc.Create(context.Background(), &dto.CreateSessionRequest{Title: "Quantum notes"})
	require.NoError(t, err)

	title := "Quantum computing research"
	archived := true
	updated, err := svc.Update(context.Background(), &dto.UpdateSessionRequest{
		Id:       created.Id,
		Title:    &title,
		Archived: &archived,
	})
	require.NoError(t, err)

	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.Archived)

	// Partial update leaves the other field alone
	unarchive := false
	updated, err = svc.Update(context.Background(), &dto.UpdateSessionRequest{
		Id:       created.Id,
		Archived: &unarchive,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.False(t, updated.Archived)
}

func TestSessionUpdateMissingSession(t *testing.T) {
	svc := NewSessionService(newFakeUowFactory())

	_, err := svc.Update(context.Background(), &dto.UpdateSessionRequest{Id: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSessionHistoryReturnsMessagesWithMetadata(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewSessionService(factory)

	created, err := svc.Create(context.Background(), &dto.CreateSessionRequest{Title: "History"})
	require.NoError(t, err)

	otherSession := uuid.New()
	factory.uow.sessions.store[otherSession] = &entity.ChatSession{Id: otherSession, Title: "Other"}

	msgs := []*entity.ChatMessage{
		{Id: uuid.New(), ChatSessionId: created.Id, Role: entity.RoleUser, Content: "what is RAG?", CreatedAt: time.Now()},
		{Id: uuid.New(), ChatSessionId: created.Id, Role: entity.RoleAssistant, Content: "RAG is...",
			Sources: []string{"rag.md"}, DocumentsUsed: 3, RelevanceScore: 8.5, Iterations: 1, CreatedAt: time.Now()},
		{Id: uuid.New(), ChatSessionId: otherSession, Role: entity.RoleUser, Content: "unrelated", CreatedAt: time.Now()},
	}
	for _, m := range msgs {
		require.NoError(t, factory.uow.messages.Create(context.Background(), m))
	}

	history, err := svc.History(context.Background(), created.Id)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, entity.RoleUser, history[0].Role)
	assert.Equal(t, entity.RoleAssistant, history[1].Role)
	assert.Equal(t, []string{"rag.md"}, history[1].Sources)
	assert.Equal(t, 3, history[1].DocumentsUsed)
	assert.InDelta(t, 8.5, history[1].RelevanceScore, 0.001)
}

func TestSessionDeleteRemovesMessages(t *testing.T) {
	factory := newFakeUowFactory()
	svc := NewSessionService(factory)

	created, err := svc.Create(context.Background(), &dto.CreateSessionRequest{Title: "Doomed"})
	require.NoError(t, err)

	require.NoError(t, factory.uow.messages.Create(context.Background(), &entity.ChatMessage{
		Id: uuid.New(), ChatSessionId: created.Id, Role: entity.RoleUser, Content: "hello",
	}))

	require.NoError(t, svc.Delete(context.Background(), created.Id))

	assert.Empty(t, factory.uow.sessions.store)
	assert.Empty(t, factory.uow.messages.messages)
	assert.Equal(t, 1, factory.uow.committed)
}
