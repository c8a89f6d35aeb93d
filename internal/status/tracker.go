package status

import (
	"github.com/google/uuid"

	"paperchat-be/internal/ingest"
	"paperchat-be/internal/registry"
)

// Snapshot is the pollable ingestion view for one session.
type Snapshot struct {
	Processing          bool   `json:"processing"`
	CurrentDocumentName string `json:"current_document_name"`
	QueueDepth          int    `json:"queue_depth"`
}

// Tracker derives snapshots from registry and pipeline state. Read-only,
// never blocks.
type Tracker struct {
	reg      *registry.Registry
	pipeline *ingest.Pipeline
}

func NewTracker(reg *registry.Registry, pipeline *ingest.Pipeline) *Tracker {
	return &Tracker{reg: reg, pipeline: pipeline}
}

func (t *Tracker) Status(sessionId uuid.UUID) (Snapshot, error) {
	h, err := t.reg.Get(sessionId)
	if err != nil {
		return Snapshot{}, err
	}

	processing, name := h.Processing()
	depth := t.pipeline.QueueDepth(sessionId)
	// depth counts the in-flight job too; queueDepth is only what waits
	// behind it.
	if processing && depth > 0 {
		depth--
	}

	return Snapshot{
		Processing:          processing,
		CurrentDocumentName: name,
		QueueDepth:          depth,
	}, nil
}
