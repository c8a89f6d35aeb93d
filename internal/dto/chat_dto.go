package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=8000"`
}

// ChatFragment is one line of the newline-delimited JSON response stream.
type ChatFragment struct {
	Content string   `json:"content"`
	Related []string `json:"related,omitempty"`
	Done    bool     `json:"done"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Messages []ChatMessageResponse `json:"messages"`
}
