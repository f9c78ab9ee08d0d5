package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

type Document struct {
	Id          uuid.UUID
	Filename    string
	ContentType string
	SizeBytes   int64

	Status        string
	ChunkCount    int
	FailureReason string

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
