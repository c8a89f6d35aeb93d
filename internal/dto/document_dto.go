package dto

import (
	"time"

	"github.com/google/uuid"
)

type FetchDocumentRequest struct {
	PaperId string `json:"paper_id" validate:"required,min=1,max=64"`
}

type DocumentResponse struct {
	Id         uuid.UUID `json:"id"`
	Origin     string    `json:"origin"` // uploaded, fetched-by-id
	Name       string    `json:"name"`
	ByteSize   int       `json:"byte_size"`
	Status     string    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}
