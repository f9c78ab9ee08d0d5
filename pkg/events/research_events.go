package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeResearchCompleted    = "RESEARCH_COMPLETED"
	TypeDocumentIngested     = "DOCUMENT_INGESTED"
	TypeDocumentIngestFailed = "DOCUMENT_INGEST_FAILED"
)

// NewResearchCompleted is emitted after a research run has been persisted.
func NewResearchCompleted(sessionId, messageId uuid.UUID, query string, iterations int, relevanceScore float64) Event {
	return BaseEvent{
		Type: TypeResearchCompleted,
		Data: map[string]interface{}{
			"session_id":      sessionId.String(),
			"message_id":      messageId.String(),
			"query":           query,
			"iterations":      iterations,
			"relevance_score": relevanceScore,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentIngested is emitted when all chunks of a document are stored.
func NewDocumentIngested(documentId uuid.UUID, filename string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"document_id": documentId.String(),
			"filename":    filename,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentIngestFailed(documentId uuid.UUID, filename string, reason string) Event {
	return BaseEvent{
		Type: TypeDocumentIngestFailed,
		Data: map[string]interface{}{
			"document_id": documentId.String(),
			"filename":    filename,
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}
