package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"paperchat-be/internal/config"
	"paperchat-be/internal/dto"
	"paperchat-be/internal/entity"
	"paperchat-be/internal/ingest"
	"paperchat-be/internal/pkg/serverutils"
	"paperchat-be/internal/registry"
	"paperchat-be/pkg/docstore"
)

// IDocumentService defines the document attachment interface
type IDocumentService interface {
	UploadDocument(ctx context.Context, sessionId uuid.UUID, filename string, data []byte) (*dto.DocumentResponse, error)
	FetchDocument(ctx context.Context, sessionId uuid.UUID, request *dto.FetchDocumentRequest) (*dto.DocumentResponse, error)
	GetAllDocuments(ctx context.Context, sessionId uuid.UUID) (*dto.DocumentListResponse, error)
	DeleteDocument(ctx context.Context, sessionId uuid.UUID, docId uuid.UUID) error
}

type documentService struct {
	reg      *registry.Registry
	pipeline *ingest.Pipeline
	cfg      config.IngestConfig
}

func NewDocumentService(reg *registry.Registry, pipeline *ingest.Pipeline, cfg config.IngestConfig) IDocumentService {
	return &documentService{
		reg:      reg,
		pipeline: pipeline,
		cfg:      cfg,
	}
}

func (s *documentService) UploadDocument(ctx context.Context, sessionId uuid.UUID, filename string, data []byte) (*dto.DocumentResponse, error) {
	if len(data) == 0 {
		return nil, serverutils.BadRequest("uploaded file is empty")
	}
	if s.cfg.MaxUploadBytes > 0 && len(data) > s.cfg.MaxUploadBytes {
		return nil, serverutils.BadRequest(fmt.Sprintf("file exceeds the %d byte upload limit", s.cfg.MaxUploadBytes))
	}
	if filename == "" {
		filename = "document.pdf"
	}

	ref, err := s.pipeline.Ingest(ctx, sessionId, docstore.Origin{
		Name:   filename,
		Upload: data,
	})
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(*ref), nil
}

func (s *documentService) FetchDocument(ctx context.Context, sessionId uuid.UUID, request *dto.FetchDocumentRequest) (*dto.DocumentResponse, error) {
	ref, err := s.pipeline.Ingest(ctx, sessionId, docstore.Origin{
		Name:     request.PaperId,
		RemoteId: request.PaperId,
	})
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(*ref), nil
}

func (s *documentService) GetAllDocuments(_ context.Context, sessionId uuid.UUID) (*dto.DocumentListResponse, error) {
	h, err := s.reg.Get(sessionId)
	if err != nil {
		return nil, err
	}
	s.reg.Touch(sessionId)

	docs := h.Documents()
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, *toDocumentResponse(d))
	}
	return &dto.DocumentListResponse{Documents: out}, nil
}

func (s *documentService) DeleteDocument(_ context.Context, sessionId uuid.UUID, docId uuid.UUID) error {
	h, err := s.reg.Get(sessionId)
	if err != nil {
		return err
	}
	s.reg.Touch(sessionId)

	if !h.RemoveDocument(docId) {
		return serverutils.NotFound("document not found")
	}
	return nil
}

func toDocumentResponse(d entity.DocumentRef) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:         d.Id,
		Origin:     string(d.Origin),
		Name:       d.Name,
		ByteSize:   d.ByteSize,
		Status:     string(d.Status),
		FailReason: d.FailReason,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
	}
}
