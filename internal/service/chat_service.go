package service

import (
	"context"

	"github.com/google/uuid"

	"paperchat-be/internal/dto"
	"paperchat-be/internal/registry"
	"paperchat-be/pkg/rag"
)

// IChatService defines the chat interface
type IChatService interface {
	// StreamChat runs one turn and pushes fragments to emit in order. The
	// final fragment always has Done set.
	StreamChat(ctx context.Context, sessionId uuid.UUID, request *dto.ChatRequest, emit func(dto.ChatFragment) error) error
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) (*dto.ChatHistoryResponse, error)
	// EnsureSession verifies the session exists before a stream is committed
	// to, so missing sessions still get a proper error response.
	EnsureSession(ctx context.Context, sessionId uuid.UUID) error
}

type chatService struct {
	reg          *registry.Registry
	orchestrator *rag.Orchestrator
}

func NewChatService(reg *registry.Registry, orchestrator *rag.Orchestrator) IChatService {
	return &chatService{
		reg:          reg,
		orchestrator: orchestrator,
	}
}

func (s *chatService) StreamChat(ctx context.Context, sessionId uuid.UUID, request *dto.ChatRequest, emit func(dto.ChatFragment) error) error {
	return s.orchestrator.Chat(ctx, sessionId, request.Message, func(f rag.Fragment) error {
		return emit(dto.ChatFragment{
			Content: f.Content,
			Related: f.Related,
			Done:    f.Done,
		})
	})
}

func (s *chatService) EnsureSession(_ context.Context, sessionId uuid.UUID) error {
	_, err := s.reg.Get(sessionId)
	return err
}

func (s *chatService) GetChatHistory(_ context.Context, sessionId uuid.UUID) (*dto.ChatHistoryResponse, error) {
	h, err := s.reg.Get(sessionId)
	if err != nil {
		return nil, err
	}
	s.reg.Touch(sessionId)

	msgs := h.Messages()
	out := make([]dto.ChatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		// In-flight assistant messages are visible with whatever content has
		// streamed so far.
		out = append(out, dto.ChatMessageResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return &dto.ChatHistoryResponse{Messages: out}, nil
}
