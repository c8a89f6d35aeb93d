package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

// ChatMessage is append-only. An in-flight assistant message grows until the
// turn finalizes it; after that it is never mutated.
type ChatMessage struct {
	Id        uuid.UUID
	Role      string
	Content   string
	Done      bool
	CreatedAt time.Time
}
