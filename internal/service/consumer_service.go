package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-research-agent-be/internal/config"
	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/entity"
	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/internal/repository/specification"
	"ai-research-agent-be/internal/repository/unitofwork"
	"ai-research-agent-be/internal/websocket"
	"ai-research-agent-be/pkg/embedding"
	"ai-research-agent-be/pkg/events"
	pktNats "ai-research-agent-be/pkg/nats"
	"ai-research-agent-be/pkg/textsplit"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the document ingestion worker: it splits uploaded
// documents into chunks, embeds each chunk and stores the vectors, while
// broadcasting progress to connected websocket clients.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	eventPublisher    *pktNats.Publisher
	hub               *websocket.Hub
	agentCfg          config.AgentConfig
	logger            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher *pktNats.Publisher,
	hub *websocket.Hub,
	agentCfg config.AgentConfig,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
		hub:               hub,
		agentCfg:          agentCfg,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ingest", "failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		cs.logger.Error("ingest", "failed to load document", map[string]interface{}{
			"document_id": payload.DocumentId, "error": err.Error(),
		})
		msg.Nack() // Retriable
		return
	}
	if document == nil {
		cs.logger.Warn("ingest", "document not found, skipping", map[string]interface{}{"document_id": payload.DocumentId})
		msg.Ack() // Deleted before ingestion started
		return
	}

	document.Status = entity.DocumentStatusProcessing
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		msg.Nack()
		return
	}

	if err := cs.ingest(ctx, uow, document, payload.Content); err != nil {
		cs.logger.Error("ingest", "ingestion failed", map[string]interface{}{
			"document_id": document.Id, "error": err.Error(),
		})
		cs.markFailed(ctx, uow, document, err)
		msg.Ack() // Failure is recorded on the document, do not redeliver
		return
	}

	msg.Ack()
}

func (cs *consumerService) ingest(ctx context.Context, uow unitofwork.UnitOfWork, document *entity.Document, content string) error {
	chunks := textsplit.Split(content, cs.agentCfg.ChunkSize, cs.agentCfg.ChunkOverlap)

	cs.logger.Info("ingest", "document split into chunks", map[string]interface{}{
		"document_id": document.Id,
		"filename":    document.Filename,
		"chunks":      len(chunks),
	})

	newChunks := make([]*entity.DocumentChunk, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}

		newChunks = append(newChunks, &entity.DocumentChunk{
			Id:             uuid.New(),
			Content:        chunk,
			EmbeddingValue: res.Embedding.Values,
			DocumentId:     document.Id,
			ChunkIndex:     i,
			CreatedAt:      time.Now(),
		})

		cs.broadcastProgress(document, i+1, len(chunks))
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	// Re-ingestion replaces any previous chunks
	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		return err
	}
	if err := uow.DocumentChunkRepository().CreateBulk(ctx, newChunks); err != nil {
		return err
	}

	document.Status = entity.DocumentStatusCompleted
	document.ChunkCount = len(newChunks)
	document.FailureReason = ""
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	cs.logger.Info("ingest", "document ingested", map[string]interface{}{
		"document_id": document.Id,
		"chunks":      len(newChunks),
	})

	if cs.eventPublisher != nil {
		evt := events.NewDocumentIngested(document.Id, document.Filename, len(newChunks))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.logger.Warn("ingest", "failed to publish ingested event", map[string]interface{}{"error": err.Error()})
		}
	}

	return nil
}

func (cs *consumerService) markFailed(ctx context.Context, uow unitofwork.UnitOfWork, document *entity.Document, cause error) {
	document.Status = entity.DocumentStatusFailed
	document.FailureReason = cause.Error()
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		cs.logger.Error("ingest", "failed to record failure", map[string]interface{}{
			"document_id": document.Id, "error": err.Error(),
		})
	}

	if cs.eventPublisher != nil {
		evt := events.NewDocumentIngestFailed(document.Id, document.Filename, cause.Error())
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.logger.Warn("ingest", "failed to publish failure event", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (cs *consumerService) broadcastProgress(document *entity.Document, processed, total int) {
	if cs.hub == nil {
		return
	}
	cs.hub.Broadcast("ingest_progress", map[string]interface{}{
		"document_id": document.Id.String(),
		"filename":    document.Filename,
		"processed":   processed,
		"total":       total,
	})
}
