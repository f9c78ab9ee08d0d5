package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=255"`
}

type CreateSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type UpdateSessionRequest struct {
	Id       uuid.UUID `json:"-"`
	Title    *string   `json:"title" validate:"omitempty,max=255"`
	Archived *bool     `json:"archived"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Archived  bool       `json:"archived"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id             uuid.UUID `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Sources        []string  `json:"sources,omitempty"`
	DocumentsUsed  int       `json:"documents_used,omitempty"`
	RelevanceScore float64   `json:"relevance_score,omitempty"`
	Iterations     int       `json:"iterations,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
