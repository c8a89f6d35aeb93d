package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"paperchat-be/internal/entity"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/pkg/serverutils"
	"paperchat-be/pkg/index"
)

// tombstoneTTL is how long an ended/evicted session id is remembered so the
// caller gets Gone instead of NotFound.
const tombstoneTTL = 24 * time.Hour

// Registry is the single owner of session lifecycle. All other components
// operate on sessions by reference through a Handle and must not create or
// destroy them.
type Registry struct {
	sessions   *cache.Cache
	tombstones *cache.Cache
	logger     logger.ILogger
}

func New(idleTTL, sweepInterval time.Duration, log logger.ILogger) *Registry {
	r := &Registry{
		sessions:   cache.New(idleTTL, sweepInterval),
		tombstones: cache.New(tombstoneTTL, sweepInterval),
		logger:     log,
	}

	// Fires on both idle eviction and explicit delete; all teardown funnels
	// through here so index memory and in-flight jobs are never leaked.
	r.sessions.OnEvicted(func(id string, value interface{}) {
		h, ok := value.(*Handle)
		if !ok {
			return
		}
		h.cancel()
		h.index.Release()
		r.tombstones.Set(id, struct{}{}, cache.DefaultExpiration)
		r.logger.Info("Registry", "Session evicted", map[string]interface{}{"session_id": id})
	})

	return r
}

// Create starts a new empty session.
func (r *Registry) Create() *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		session: &entity.Session{
			Id:        uuid.New(),
			CreatedAt: time.Now(),
		},
		index:  index.NewStore(),
		ctx:    ctx,
		cancel: cancel,
	}

	r.sessions.Set(h.session.Id.String(), h, cache.DefaultExpiration)
	r.logger.Info("Registry", "Session created", map[string]interface{}{"session_id": h.session.Id})
	return h
}

// Get returns the session handle, distinguishing unknown ids (NotFound) from
// ids that were evicted mid-conversation (Gone).
func (r *Registry) Get(id uuid.UUID) (*Handle, error) {
	if x, found := r.sessions.Get(id.String()); found {
		return x.(*Handle), nil
	}
	if _, gone := r.tombstones.Get(id.String()); gone {
		return nil, serverutils.Gone("session expired, recreate it")
	}
	return nil, serverutils.NotFound("session not found")
}

// Touch resets the idle clock on caller activity.
func (r *Registry) Touch(id uuid.UUID) {
	if x, found := r.sessions.Get(id.String()); found {
		r.sessions.Set(id.String(), x, cache.DefaultExpiration)
	}
}

// End destroys a session: cancels any in-flight ingestion and releases the
// index via the eviction hook.
func (r *Registry) End(id uuid.UUID) error {
	if _, found := r.sessions.Get(id.String()); !found {
		if _, gone := r.tombstones.Get(id.String()); gone {
			return serverutils.Gone("session already ended")
		}
		return serverutils.NotFound("session not found")
	}
	r.sessions.Delete(id.String())
	return nil
}

// Handle is the thread-safe view over one live session.
type Handle struct {
	mu      sync.Mutex
	session *entity.Session
	index   *index.Store
	ctx     context.Context
	cancel  context.CancelFunc
}

// Id returns the session id.
func (h *Handle) Id() uuid.UUID {
	return h.session.Id
}

// Context is cancelled when the session ends; ingestion jobs derive from it.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Index returns the session-owned vector index.
func (h *Handle) Index() *index.Store {
	return h.index
}

// AttachDocument registers a new DocumentRef on the session.
func (h *Handle) AttachDocument(ref *entity.DocumentRef) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.Documents = append(h.session.Documents, ref)
}

// Documents returns a snapshot copy of the attached document refs.
func (h *Handle) Documents() []entity.DocumentRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entity.DocumentRef, len(h.session.Documents))
	for i, d := range h.session.Documents {
		out[i] = *d
	}
	return out
}

// Document returns a snapshot of one document ref.
func (h *Handle) Document(docId uuid.UUID) (entity.DocumentRef, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d := h.session.FindDocument(docId); d != nil {
		return *d, true
	}
	return entity.DocumentRef{}, false
}

// UpdateDocument mutates one document ref under the session lock. The
// ingestion pipeline is the only caller, so a ref never sees concurrent
// writes.
func (h *Handle) UpdateDocument(docId uuid.UUID, fn func(*entity.DocumentRef)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.session.FindDocument(docId)
	if d == nil {
		return false
	}
	fn(d)
	return true
}

// RemoveDocument detaches a document and drops its chunks immediately.
func (h *Handle) RemoveDocument(docId uuid.UUID) bool {
	h.mu.Lock()
	found := false
	docs := h.session.Documents[:0]
	for _, d := range h.session.Documents {
		if d.Id == docId {
			found = true
			continue
		}
		docs = append(docs, d)
	}
	h.session.Documents = docs
	h.mu.Unlock()

	if found {
		h.index.RemoveDocument(docId)
	}
	return found
}

// ReadyDocuments returns snapshots of documents whose chunks are indexed.
func (h *Handle) ReadyDocuments() []entity.DocumentRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []entity.DocumentRef
	for _, d := range h.session.Documents {
		if d.Status == entity.DocumentStatusReady {
			out = append(out, *d)
		}
	}
	return out
}

// SetProcessing flips the session's single "currently processing" indicator.
func (h *Handle) SetProcessing(processing bool, documentName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.Processing = processing
	h.session.CurrentDocumentName = documentName
}

// Processing reports the current ingestion indicator.
func (h *Handle) Processing() (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Processing, h.session.CurrentDocumentName
}

// AppendMessage appends a chat message. Messages are strictly ordered by
// append time and never deleted.
func (h *Handle) AppendMessage(msg *entity.ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.Messages = append(h.session.Messages, msg)
}

// AppendContent grows an in-flight message. No-op once the message is done.
func (h *Handle) AppendContent(msgId uuid.UUID, delta string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.session.Messages {
		if m.Id == msgId && !m.Done {
			m.Content += delta
			return
		}
	}
}

// FinalizeMessage marks a message terminal; it is never mutated afterwards.
func (h *Handle) FinalizeMessage(msgId uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.session.Messages {
		if m.Id == msgId {
			m.Done = true
			return
		}
	}
}

// Messages returns a snapshot copy of the conversation.
func (h *Handle) Messages() []entity.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entity.ChatMessage, len(h.session.Messages))
	for i, m := range h.session.Messages {
		out[i] = *m
	}
	return out
}

// CreatedAt returns the session creation time.
func (h *Handle) CreatedAt() time.Time {
	return h.session.CreatedAt
}
