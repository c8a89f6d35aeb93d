package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is the unit of conversational and document-ingestion state. It is
// created, mutated and destroyed only through the registry.
type Session struct {
	Id        uuid.UUID
	CreatedAt time.Time

	Messages  []*ChatMessage
	Documents []*DocumentRef

	// Single "currently processing" indicator consumed by the status tracker.
	Processing          bool
	CurrentDocumentName string
}

func (s *Session) FindDocument(docId uuid.UUID) *DocumentRef {
	for _, d := range s.Documents {
		if d.Id == docId {
			return d
		}
	}
	return nil
}
