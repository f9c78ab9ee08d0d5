package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Query         string    `json:"query" validate:"required"`
}

type SendChatResponseChat struct {
	Id        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID             `json:"chat_session_id"`
	ChatSessionTitle string                `json:"title"`
	Sent             *SendChatResponseChat `json:"sent"`
	Reply            *SendChatResponseChat `json:"reply"`

	Sources        []string `json:"sources,omitempty"`
	DocumentsUsed  int      `json:"documents_used"`
	RelevanceScore float64  `json:"relevance_score"`
	Iterations     int      `json:"iterations"`
}
