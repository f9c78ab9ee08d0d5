package service

import (
	"context"
	"testing"
	"time"

	"ai-research-agent-be/internal/config"
	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/entity"
	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/pkg/agent"
	"ai-research-agent-be/pkg/agent/stream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResearchServiceForTest(factory *fakeUowFactory, retriever agent.Retriever) IResearchService {
	return NewResearchService(
		factory,
		retriever,
		&scriptedLLM{
			analysis:  "LOCAL_SEARCH: yes\nWEB_SEARCH: no",
			relevance: "RELEVANCE_SCORE: 9\nREASONING: directly on topic",
			synthesis: "RAG grounds language model answers in retrieved documents. [Source: rag.md]",
		},
		config.AgentConfig{MaxIterations: 3, RelevanceThreshold: 7.0, RetrievalTopK: 5},
		nil,
		logger.NewNopLogger(),
	)
}

func seedSession(t *testing.T, factory *fakeUowFactory, title string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, factory.uow.sessions.Create(context.Background(), &entity.ChatSession{
		Id:        id,
		Title:     title,
		CreatedAt: time.Now(),
	}))
	return id
}

func TestSendChatPersistsConversation(t *testing.T) {
	factory := newFakeUowFactory()
	svc := newResearchServiceForTest(factory, &fakeRetriever{chunks: []agent.Chunk{
		{Content: "RAG retrieves documents before generating.", Metadata: map[string]string{"source": "rag.md"}},
	}})

	sessionId := seedSession(t, factory, "RAG basics")

	res, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Query:         "What is retrieval augmented generation?",
	})
	require.NoError(t, err)

	assert.Equal(t, sessionId, res.ChatSessionId)
	require.NotNil(t, res.Sent)
	require.NotNil(t, res.Reply)
	assert.Equal(t, entity.RoleUser, res.Sent.Role)
	assert.Equal(t, entity.RoleAssistant, res.Reply.Role)
	assert.Contains(t, res.Reply.Content, "RAG grounds")
	assert.Equal(t, []string{"rag.md"}, res.Sources)
	assert.Equal(t, 1, res.DocumentsUsed)
	assert.InDelta(t, 9.0, res.RelevanceScore, 0.001)
	assert.Equal(t, 1, res.Iterations)

	// Both sides of the exchange are stored
	msgs := factory.uow.messages.messages
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Equal(t, []string{"rag.md"}, msgs[1].Sources)
}

func TestSendChatRetitlesDefaultSession(t *testing.T) {
	factory := newFakeUowFactory()
	svc := newResearchServiceForTest(factory, &fakeRetriever{chunks: []agent.Chunk{
		{Content: "content", Metadata: map[string]string{"source": "a.txt"}},
	}})

	sessionId := seedSession(t, factory, defaultSessionTitle)

	_, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Query:         "Explain vector similarity search",
	})
	require.NoError(t, err)

	assert.Equal(t, "Explain vector similarity search", factory.uow.sessions.store[sessionId].Title)
}

func TestSendChatKeepsCustomTitle(t *testing.T) {
	factory := newFakeUowFactory()
	svc := newResearchServiceForTest(factory, &fakeRetriever{chunks: []agent.Chunk{
		{Content: "content", Metadata: map[string]string{"source": "a.txt"}},
	}})

	sessionId := seedSession(t, factory, "My research")

	_, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Query:         "Explain vector similarity search",
	})
	require.NoError(t, err)

	assert.Equal(t, "My research", factory.uow.sessions.store[sessionId].Title)
}

func TestSendChatUnknownSession(t *testing.T) {
	factory := newFakeUowFactory()
	svc := newResearchServiceForTest(factory, &fakeRetriever{})

	_, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: uuid.New(),
		Query:         "anything",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat session not found")
}

func TestStreamChatDeliversOrderedLifecycle(t *testing.T) {
	factory := newFakeUowFactory()
	svc := newResearchServiceForTest(factory, &fakeRetriever{chunks: []agent.Chunk{
		{Content: "RAG retrieves documents before generating.", Metadata: map[string]string{"source": "rag.md"}},
	}})

	sessionId := seedSession(t, factory, "Streaming")

	events, err := svc.StreamChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Query:         "What is retrieval augmented generation?",
	})
	require.NoError(t, err)

	var types []stream.EventType
	for evt := range events {
		types = append(types, evt.Type)
	}

	require.NotEmpty(t, types)
	assert.Equal(t, stream.EventNodeStart, types[0])
	assert.Equal(t, stream.EventComplete, types[len(types)-1])

	var terminals int
	for _, typ := range types {
		if typ == stream.EventComplete || typ == stream.EventError {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)

	// The streamed answer was persisted before the terminal event fired.
	msgs := factory.uow.messages.messages
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
}

func TestTruncateTitle(t *testing.T) {
	short := "short query"
	assert.Equal(t, short, truncateTitle(short))

	long := ""
	for i := 0; i < 30; i++ {
		long += "abcdefgh "
	}
	got := truncateTitle(long)
	assert.Len(t, []rune(got), sessionTitleMaxLen)
	assert.True(t, len(got) < len(long))
	assert.Contains(t, got, "...")
}
