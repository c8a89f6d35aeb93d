package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"paperchat-be/internal/entity"
	"paperchat-be/internal/pkg/logger"
)

const statusChannel = "status_events"

// statusEvent is the wire shape pushed to status subscribers.
type statusEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type documentStatusData struct {
	DocumentId uuid.UUID `json:"document_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	QueueDepth int       `json:"queue_depth"`
}

// Hub fans document status changes out to the websocket subscribers of a
// session. With Redis configured, events also cross instance boundaries;
// without it the hub works purely in-process.
type Hub struct {
	// sessionId -> connected clients (a session may have several tabs open)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Status client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// NotifyDocument implements ingest.StatusNotifier: one event per document
// state change, fanned out to every subscriber of the session.
func (h *Hub) NotifyDocument(sessionId uuid.UUID, doc entity.DocumentRef, queueDepth int) {
	h.send(sessionId, statusEvent{
		Type: "document_status",
		Data: documentStatusData{
			DocumentId: doc.Id,
			Name:       doc.Name,
			Status:     string(doc.Status),
			FailReason: doc.FailReason,
			ChunkCount: doc.ChunkCount,
			QueueDepth: queueDepth,
		},
	})
}

// NotifySessionEnded tells subscribers the session is gone so they can stop
// reconnecting.
func (h *Hub) NotifySessionEnded(sessionId uuid.UUID) {
	h.send(sessionId, statusEvent{Type: "session_ended"})
}

func (h *Hub) send(sessionId uuid.UUID, event statusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.deliverLocal(sessionId, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_session_id": sessionId.String(),
			"message":           json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), statusChannel, payload)
	}
}

func (h *Hub) deliverLocal(sessionId uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := h.clients[sessionId]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// Slow consumer; drop the connection rather than block ingestion.
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"session_id": sessionId})
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, statusChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetSessionID string          `json:"target_session_id"`
			Message         json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Malformed cross-instance status event", map[string]interface{}{"error": err.Error()})
			continue
		}

		sid, err := uuid.Parse(payload.TargetSessionID)
		if err != nil {
			continue
		}
		h.deliverLocal(sid, payload.Message)
	}
}
