package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus follows a monotonic path:
// queued -> extracting -> embedding -> ready, with a single divert to failed.
type DocumentStatus string

const (
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusExtracting DocumentStatus = "extracting"
	DocumentStatusEmbedding  DocumentStatus = "embedding"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// rank orders the forward path for monotonicity checks.
var statusRank = map[DocumentStatus]int{
	DocumentStatusQueued:     0,
	DocumentStatusExtracting: 1,
	DocumentStatusEmbedding:  2,
	DocumentStatusReady:      3,
}

type DocumentOrigin string

const (
	DocumentOriginUploaded DocumentOrigin = "uploaded"
	DocumentOriginFetched  DocumentOrigin = "fetched-by-id"
)

// DocumentRef tracks an attached document through ingestion. Status is
// mutated only by the ingestion pipeline, never concurrently for one document.
type DocumentRef struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	Origin     DocumentOrigin
	Name       string
	ByteSize   int
	Status     DocumentStatus
	FailReason string // set only when Status == failed
	ChunkCount int
	CreatedAt  time.Time
}

// Advance moves the ref forward along the monotonic path. Transitions that
// would regress or leave a terminal state are ignored.
func (d *DocumentRef) Advance(next DocumentStatus) bool {
	if d.Status == DocumentStatusFailed || d.Status == DocumentStatusReady {
		return false
	}
	cur, curOk := statusRank[d.Status]
	nxt, nxtOk := statusRank[next]
	if !curOk || !nxtOk || nxt <= cur {
		return false
	}
	d.Status = next
	return true
}

// Fail diverts the ref to the terminal failed state with a reason.
func (d *DocumentRef) Fail(reason string) bool {
	if d.Status == DocumentStatusFailed || d.Status == DocumentStatusReady {
		return false
	}
	d.Status = DocumentStatusFailed
	d.FailReason = reason
	return true
}
