package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Id            uuid.UUID
	Content       string
	Role          string
	ChatSessionId uuid.UUID

	// Research metadata, zero on user messages.
	Sources        []string
	DocumentsUsed  int
	RelevanceScore float64
	Iterations     int

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
