package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"paperchat-be/internal/dto"
	"paperchat-be/internal/ingest"
	"paperchat-be/internal/pkg/logger"
	"paperchat-be/internal/registry"
	"paperchat-be/pkg/events"
)

// ISessionService defines the session lifecycle interface
type ISessionService interface {
	CreateSession(ctx context.Context) (*dto.SessionResponse, error)
	EndSession(ctx context.Context, sessionId uuid.UUID) error
}

// SessionEndNotifier tells push subscribers the session is gone.
type SessionEndNotifier interface {
	NotifySessionEnded(sessionId uuid.UUID)
}

type sessionService struct {
	reg       *registry.Registry
	publisher ingest.EventPublisher // nil-safe
	notifier  SessionEndNotifier    // nil-safe
	logger    logger.ILogger
}

func NewSessionService(
	reg *registry.Registry,
	publisher ingest.EventPublisher,
	notifier SessionEndNotifier,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		reg:       reg,
		publisher: publisher,
		notifier:  notifier,
		logger:    log,
	}
}

func (s *sessionService) CreateSession(_ context.Context) (*dto.SessionResponse, error) {
	h := s.reg.Create()
	return &dto.SessionResponse{
		Id:        h.Id(),
		CreatedAt: h.CreatedAt(),
	}, nil
}

func (s *sessionService) EndSession(ctx context.Context, sessionId uuid.UUID) error {
	if err := s.reg.End(sessionId); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifySessionEnded(sessionId)
	}
	if s.publisher != nil {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		event := events.BaseEvent{
			Type:       events.TypeSessionEnded,
			Data:       map[string]interface{}{"session_id": sessionId.String()},
			OccurredAt: time.Now(),
		}
		if err := s.publisher.Publish(pctx, event); err != nil {
			s.logger.Warn("Session", "Failed to publish session end event", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}
