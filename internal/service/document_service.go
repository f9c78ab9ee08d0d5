package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/entity"
	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/internal/repository/specification"
	"ai-research-agent-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ErrUploadRejected marks client mistakes (empty, too large, wrong type) so
// the controller can answer 400 instead of 500.
var ErrUploadRejected = errors.New("upload rejected")

// IsUploadRejected reports whether err is a client-side upload rejection.
func IsUploadRejected(err error) bool {
	return errors.Is(err, ErrUploadRejected)
}

// maxDocumentSize caps a single upload; the HTTP body limit is the outer
// guard, this one keeps queue payloads bounded.
const maxDocumentSize = 10 * 1024 * 1024

// allowedExtensions gates upload by file type. Only plain-text formats are
// ingestible; everything else would embed garbage.
var allowedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

type IDocumentService interface {
	Upload(ctx context.Context, filename, contentType string, content []byte) (*dto.UploadDocumentResponse, error)
	GetAll(ctx context.Context) ([]*dto.GetDocumentResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.GetDocumentResponse, error)
	Stats(ctx context.Context) (*dto.DocumentStatsResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		logger:           log,
	}
}

// Upload stages the document as pending and queues it for the ingestion
// worker. Chunking and embedding happen asynchronously.
func (s *documentService) Upload(ctx context.Context, filename, contentType string, content []byte) (*dto.UploadDocumentResponse, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrUploadRejected)
	}
	if len(content) > maxDocumentSize {
		return nil, fmt.Errorf("%w: document exceeds the %dMB limit", ErrUploadRejected, maxDocumentSize/(1024*1024))
	}
	if ext := strings.ToLower(filepath.Ext(filename)); !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrUploadRejected, ext)
	}

	document := entity.Document{
		Id:          uuid.New(),
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(content)),
		Status:      entity.DocumentStatusPending,
		CreatedAt:   time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	msgPayload := dto.PublishIngestDocumentMessage{
		DocumentId: document.Id,
		Content:    string(content),
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}

	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	s.logger.Info("document", "document staged for ingestion", map[string]interface{}{
		"document_id": document.Id,
		"filename":    filename,
		"size_bytes":  document.SizeBytes,
	})

	return &dto.UploadDocumentResponse{
		Id:       document.Id,
		Filename: document.Filename,
		Status:   document.Status,
	}, nil
}

func (s *documentService) GetAll(ctx context.Context) ([]*dto.GetDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetDocumentResponse, len(documents))
	for i, d := range documents {
		res[i] = toDocumentResponse(d)
	}
	return res, nil
}

func (s *documentService) Show(ctx context.Context, id uuid.UUID) (*dto.GetDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}
	return toDocumentResponse(document), nil
}

func (s *documentService) Stats(ctx context.Context) (*dto.DocumentStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	docRepo := uow.DocumentRepository()

	stats := &dto.DocumentStatsResponse{}
	var err error

	if stats.TotalDocuments, err = docRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalChunks, err = uow.DocumentChunkRepository().Count(ctx); err != nil {
		return nil, err
	}

	byStatus := map[string]*int64{
		entity.DocumentStatusPending:    &stats.Pending,
		entity.DocumentStatusProcessing: &stats.Processing,
		entity.DocumentStatusCompleted:  &stats.Completed,
		entity.DocumentStatusFailed:     &stats.Failed,
	}
	for status, target := range byStatus {
		if *target, err = docRepo.Count(ctx, specification.ByStatus{Status: status}); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}

	return uow.Commit()
}

func toDocumentResponse(d *entity.Document) *dto.GetDocumentResponse {
	return &dto.GetDocumentResponse{
		Id:            d.Id,
		Filename:      d.Filename,
		ContentType:   d.ContentType,
		SizeBytes:     d.SizeBytes,
		Status:        d.Status,
		ChunkCount:    d.ChunkCount,
		FailureReason: d.FailureReason,
		CreatedAt:     d.CreatedAt,
	}
}
