package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"paperchat-be/internal/config"
	"paperchat-be/internal/entity"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/registry"
	"paperchat-be/pkg/chunker"
	"paperchat-be/pkg/docstore"
	"paperchat-be/pkg/events"
	"paperchat-be/pkg/extractor"
)

const ingestTopic = "INGEST_DOCUMENT"

// EventPublisher receives document lifecycle events (NATS-backed in prod).
// Nil-safe: a nil publisher disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// StatusNotifier pushes document state changes to connected status listeners.
type StatusNotifier interface {
	NotifyDocument(sessionId uuid.UUID, doc entity.DocumentRef, queueDepth int)
}

type ingestJob struct {
	SessionId  uuid.UUID `json:"session_id"`
	DocumentId uuid.UUID `json:"document_id"`
	RemoteId   string    `json:"remote_id,omitempty"`

	// upload bytes stay in-process; the bus message only carries ids
	upload []byte
}

// Pipeline orchestrates acquire -> extract -> chunk & embed -> index.
// Jobs are handed off over an in-process watermill bus; per-session queues
// serialize jobs (one "processing" document per session), while the shared
// ants pool bounds how many documents embed in parallel across all sessions.
type Pipeline struct {
	reg       *registry.Registry
	store     docstore.Adapter
	extract   extractor.TextExtractor
	worker    *chunker.Worker
	pubSub    *gochannel.GoChannel
	pool      *ants.Pool
	publisher EventPublisher
	notifier  StatusNotifier
	logger    logger.ILogger
	cfg       config.IngestConfig

	mu      sync.Mutex
	queues  map[uuid.UUID]*sessionQueue
	uploads map[uuid.UUID][]byte // docId -> upload buffer, until the job runs
}

func NewPipeline(
	reg *registry.Registry,
	store docstore.Adapter,
	extract extractor.TextExtractor,
	worker *chunker.Worker,
	publisher EventPublisher,
	notifier StatusNotifier,
	log logger.ILogger,
	cfg config.IngestConfig,
) (*Pipeline, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)

	return &Pipeline{
		reg:       reg,
		store:     store,
		extract:   extract,
		worker:    worker,
		pubSub:    pubSub,
		pool:      pool,
		publisher: publisher,
		notifier:  notifier,
		logger:    log,
		cfg:       cfg,
		queues:    make(map[uuid.UUID]*sessionQueue),
		uploads:   make(map[uuid.UUID][]byte),
	}, nil
}

// Ingest attaches a document and queues it. Returns immediately with the ref
// in status queued; the rest happens asynchronously.
func (p *Pipeline) Ingest(ctx context.Context, sessionId uuid.UUID, origin docstore.Origin) (*entity.DocumentRef, error) {
	h, err := p.reg.Get(sessionId)
	if err != nil {
		return nil, err
	}

	ref := &entity.DocumentRef{
		Id:        uuid.New(),
		SessionId: sessionId,
		Name:      origin.Name,
		ByteSize:  len(origin.Upload),
		Status:    entity.DocumentStatusQueued,
		CreatedAt: time.Now(),
	}
	if origin.IsUpload() {
		ref.Origin = entity.DocumentOriginUploaded
	} else {
		ref.Origin = entity.DocumentOriginFetched
	}
	h.AttachDocument(ref)
	p.reg.Touch(sessionId)

	job := ingestJob{
		SessionId:  sessionId,
		DocumentId: ref.Id,
		RemoteId:   origin.RemoteId,
	}

	if len(origin.Upload) > 0 {
		p.mu.Lock()
		p.uploads[ref.Id] = origin.Upload
		p.mu.Unlock()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	if err := p.pubSub.Publish(ingestTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return nil, err
	}

	p.logger.Info("Ingest", "Document queued", map[string]interface{}{
		"session_id":  sessionId,
		"document_id": ref.Id,
		"name":        ref.Name,
	})

	snapshot := *ref
	return &snapshot, nil
}

// Start consumes the job bus and routes jobs into per-session queues.
func (p *Pipeline) Start(ctx context.Context) error {
	messages, err := p.pubSub.Subscribe(ctx, ingestTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			p.routeMessage(msg)
		}
	}()

	return nil
}

func (p *Pipeline) routeMessage(msg *message.Message) {
	var job ingestJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		p.logger.Error("Ingest", "Failed to unmarshal job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid messages are not retriable
		return
	}

	p.mu.Lock()
	job.upload = p.uploads[job.DocumentId]
	delete(p.uploads, job.DocumentId)
	p.mu.Unlock()

	h, err := p.reg.Get(job.SessionId)
	if err != nil {
		// session ended between publish and consume; nothing to do
		msg.Ack()
		return
	}

	q := p.queueFor(h)
	q.push(job)
	msg.Ack()
}

// QueueDepth reports jobs accepted but not yet finished for a session.
func (p *Pipeline) QueueDepth(sessionId uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if q, ok := p.queues[sessionId]; ok {
		return q.depth()
	}
	return 0
}

// Close stops the worker pool and the job bus.
func (p *Pipeline) Close() {
	p.pool.Release()
	_ = p.pubSub.Close()
}

func (p *Pipeline) queueFor(h *registry.Handle) *sessionQueue {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.queues[h.Id()]; ok {
		return q
	}

	q := newSessionQueue()
	p.queues[h.Id()] = q

	// One runner per session keeps jobs strictly FIFO and serialized; it
	// exits when the session context is cancelled.
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.queues, h.Id())
			p.mu.Unlock()
		}()
		p.runQueue(h, q)
	}()

	return q
}

func (p *Pipeline) runQueue(h *registry.Handle, q *sessionQueue) {
	ctx := h.Context()
	for {
		job, ok := q.pop(ctx)
		if !ok {
			return
		}

		done := make(chan struct{})
		err := p.pool.Submit(func() {
			defer close(done)
			p.runJob(h, job)
		})
		if err != nil {
			// pool released during shutdown
			close(done)
		}
		<-done
		q.finish()
	}
}

func (p *Pipeline) runJob(h *registry.Handle, job ingestJob) {
	sessionCtx := h.Context()
	if sessionCtx.Err() != nil {
		return
	}

	doc, found := h.Document(job.DocumentId)
	if !found {
		return // deleted while queued
	}

	h.SetProcessing(true, doc.Name)
	defer h.SetProcessing(false, "")

	p.advance(h, job.DocumentId, entity.DocumentStatusExtracting)

	// 1. Acquire bytes
	origin := docstore.Origin{
		Name:     doc.Name,
		Upload:   job.upload,
		RemoteId: job.RemoteId,
	}
	fetchCtx, cancelFetch := context.WithTimeout(sessionCtx, p.cfg.FetchTimeout)
	data, err := p.store.Acquire(fetchCtx, origin)
	cancelFetch()
	if err != nil {
		p.fail(h, job.DocumentId, "fetch-error", err)
		return
	}
	h.UpdateDocument(job.DocumentId, func(d *entity.DocumentRef) {
		d.ByteSize = len(data)
	})

	// 2. Extract text
	extractCtx, cancelExtract := context.WithTimeout(sessionCtx, p.cfg.ExtractTimeout)
	text, err := p.extract.Extract(extractCtx, data)
	cancelExtract()
	if err != nil {
		p.fail(h, job.DocumentId, "extract-error", err)
		return
	}

	// 3. Lossy cap on very long documents (cost control, not a bug)
	text = chunker.CapText(text, p.cfg.MaxChars)

	// 4. Chunk & embed
	p.advance(h, job.DocumentId, entity.DocumentStatusEmbedding)
	chunks, err := p.worker.ChunkAndEmbed(sessionCtx, job.DocumentId, text)
	if err != nil {
		p.fail(h, job.DocumentId, "embed-error", err)
		return
	}

	// 5. Index and mark ready. All-or-nothing: a failed document indexes
	// nothing, so retrieval never sees partial coverage.
	h.Index().Add(job.DocumentId, chunks)
	h.UpdateDocument(job.DocumentId, func(d *entity.DocumentRef) {
		d.ChunkCount = len(chunks)
		d.Advance(entity.DocumentStatusReady)
	})

	p.logger.Info("Ingest", "Document ready", map[string]interface{}{
		"session_id":  h.Id(),
		"document_id": job.DocumentId,
		"chunks":      len(chunks),
	})
	p.emitTerminal(h, job.DocumentId, events.TypeDocumentReady, "")
}

func (p *Pipeline) advance(h *registry.Handle, docId uuid.UUID, next entity.DocumentStatus) {
	h.UpdateDocument(docId, func(d *entity.DocumentRef) {
		d.Advance(next)
	})
	p.notify(h, docId)
}

func (p *Pipeline) fail(h *registry.Handle, docId uuid.UUID, reason string, cause error) {
	h.UpdateDocument(docId, func(d *entity.DocumentRef) {
		d.Fail(reason)
	})
	p.logger.Warn("Ingest", "Document failed", map[string]interface{}{
		"session_id":  h.Id(),
		"document_id": docId,
		"reason":      reason,
		"error":       cause.Error(),
	})
	p.emitTerminal(h, docId, events.TypeDocumentFailed, reason)
}

func (p *Pipeline) emitTerminal(h *registry.Handle, docId uuid.UUID, eventType, reason string) {
	p.notify(h, docId)

	if p.publisher == nil {
		return
	}
	doc, found := h.Document(docId)
	if !found {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event := events.DocumentEvent(eventType, h.Id().String(), docId.String(), doc.Name, reason)
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("Ingest", "Failed to publish lifecycle event", map[string]interface{}{"error": err.Error()})
	}
}

func (p *Pipeline) notify(h *registry.Handle, docId uuid.UUID) {
	if p.notifier == nil {
		return
	}
	if doc, found := h.Document(docId); found {
		p.notifier.NotifyDocument(h.Id(), doc, p.QueueDepth(h.Id()))
	}
}
