package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentResponse struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Status   string    `json:"status"`
}

type GetDocumentResponse struct {
	Id            uuid.UUID `json:"id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	Status        string    `json:"status"`
	ChunkCount    int       `json:"chunk_count"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type DocumentStatsResponse struct {
	TotalDocuments int64 `json:"total_documents"`
	TotalChunks    int64 `json:"total_chunks"`
	Pending        int64 `json:"pending"`
	Processing     int64 `json:"processing"`
	Completed      int64 `json:"completed"`
	Failed         int64 `json:"failed"`
}

// PublishIngestDocumentMessage is the payload queued for the ingestion
// worker after an upload is staged.
type PublishIngestDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
}
