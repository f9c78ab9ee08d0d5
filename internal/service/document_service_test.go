package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/entity"
	"ai-research-agent-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocumentServiceForTest() (IDocumentService, *fakeUowFactory, *fakePublisher) {
	factory := newFakeUowFactory()
	pub := &fakePublisher{}
	return NewDocumentService(factory, pub, logger.NewNopLogger()), factory, pub
}

func TestDocumentUploadStagesAndPublishes(t *testing.T) {
	svc, factory, pub := newDocumentServiceForTest()

	content := []byte("Retrieval augmented generation grounds answers in documents.")
	res, err := svc.Upload(context.Background(), "rag.md", "text/markdown", content)
	require.NoError(t, err)

	assert.Equal(t, "rag.md", res.Filename)
	assert.Equal(t, entity.DocumentStatusPending, res.Status)

	stored := factory.uow.documents.store[res.Id]
	require.NotNil(t, stored)
	assert.Equal(t, int64(len(content)), stored.SizeBytes)

	require.Len(t, pub.published, 1)
	var msg dto.PublishIngestDocumentMessage
	require.NoError(t, json.Unmarshal(pub.published[0], &msg))
	assert.Equal(t, res.Id, msg.DocumentId)
	assert.Equal(t, string(content), msg.Content)
}

func TestDocumentUploadRejections(t *testing.T) {
	svc, _, pub := newDocumentServiceForTest()

	cases := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"empty file", "empty.txt", nil},
		{"oversized file", "huge.txt", []byte(strings.Repeat("a", maxDocumentSize+1))},
		{"unsupported extension", "report.pdf", []byte("binary soup")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tc.filename, "application/octet-stream", tc.content)
			require.Error(t, err)
			assert.True(t, IsUploadRejected(err), "expected upload rejection, got: %v", err)
		})
	}

	assert.Empty(t, pub.published, "rejected uploads must not reach the queue")
}

func TestDocumentStatsCountsByStatus(t *testing.T) {
	svc, factory, _ := newDocumentServiceForTest()

	for _, status := range []string{
		entity.DocumentStatusCompleted,
		entity.DocumentStatusCompleted,
		entity.DocumentStatusPending,
		entity.DocumentStatusFailed,
	} {
		require.NoError(t, factory.uow.documents.Create(context.Background(), &entity.Document{
			Id:     uuid.New(),
			Status: status,
		}))
	}
	require.NoError(t, factory.uow.chunks.Create(context.Background(), &entity.DocumentChunk{Id: uuid.New()}))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalDocuments)
	assert.Equal(t, int64(1), stats.TotalChunks)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Processing)
}

func TestDocumentDeleteRemovesChunks(t *testing.T) {
	svc, factory, _ := newDocumentServiceForTest()

	docId := uuid.New()
	require.NoError(t, factory.uow.documents.Create(context.Background(), &entity.Document{
		Id:     docId,
		Status: entity.DocumentStatusCompleted,
	}))
	require.NoError(t, factory.uow.chunks.Create(context.Background(), &entity.DocumentChunk{
		Id:         uuid.New(),
		DocumentId: docId,
	}))

	require.NoError(t, svc.Delete(context.Background(), docId))

	assert.Empty(t, factory.uow.documents.store)
	assert.Empty(t, factory.uow.chunks.chunks)
	assert.Equal(t, 1, factory.uow.committed)
}

func TestDocumentShowMissingReturnsNil(t *testing.T) {
	svc, _, _ := newDocumentServiceForTest()

	res, err := svc.Show(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, res)
}
