package dto

import (
	"time"

	"github.com/google/uuid"
)

type SessionResponse struct {
	Id        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
