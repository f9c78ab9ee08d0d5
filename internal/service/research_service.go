package service

import (
	"context"
	"fmt"
	"time"

	"ai-research-agent-be/internal/config"
	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/entity"
	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/internal/repository/specification"
	"ai-research-agent-be/internal/repository/unitofwork"
	"ai-research-agent-be/pkg/agent"
	"ai-research-agent-be/pkg/agent/stream"
	"ai-research-agent-be/pkg/events"
	"ai-research-agent-be/pkg/llm"
	pktNats "ai-research-agent-be/pkg/nats"

	"github.com/google/uuid"
)

const sessionTitleMaxLen = 80

type IResearchService interface {
	SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	StreamChat(ctx context.Context, req *dto.SendChatRequest) (<-chan stream.Event, error)
}

type researchService struct {
	uowFactory     unitofwork.RepositoryFactory
	engine         *agent.Engine
	translator     *stream.Translator
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewResearchService(
	uowFactory unitofwork.RepositoryFactory,
	retriever agent.Retriever,
	llmProvider llm.LLMProvider,
	agentCfg config.AgentConfig,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IResearchService {
	engine := agent.NewEngine(agent.Config{
		MaxIterations:      agentCfg.MaxIterations,
		RelevanceThreshold: agentCfg.RelevanceThreshold,
		RetrievalTopK:      agentCfg.RetrievalTopK,
	}, retriever, newGeneratorAdapter(llmProvider), log)

	svc := &researchService{
		uowFactory:     uowFactory,
		engine:         engine,
		eventPublisher: eventPublisher,
		logger:         log,
	}
	svc.translator = stream.NewTranslator(engine, svc, log)
	return svc
}

// SendChat runs the research workflow synchronously and returns the full
// answer in one response.
func (s *researchService) SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	session, sent, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Run(ctx, req.Query, nil)
	if err != nil {
		return nil, err
	}

	messageId, err := s.SaveAnswer(ctx, session.Id, result)
	if err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{
		ChatSessionId:    session.Id,
		ChatSessionTitle: session.Title,
		Sent: &dto.SendChatResponseChat{
			Id:        sent.Id,
			Content:   sent.Content,
			Role:      sent.Role,
			CreatedAt: sent.CreatedAt,
		},
		Reply: &dto.SendChatResponseChat{
			Id:        messageId,
			Content:   result.Answer,
			Role:      entity.RoleAssistant,
			CreatedAt: time.Now(),
		},
		Sources:        result.Sources,
		DocumentsUsed:  result.DocumentsUsed,
		RelevanceScore: result.RelevanceScore,
		Iterations:     result.Iterations,
	}, nil
}

// StreamChat runs the workflow in the background and returns the lifecycle
// event channel for SSE delivery.
func (s *researchService) StreamChat(ctx context.Context, req *dto.SendChatRequest) (<-chan stream.Event, error) {
	session, _, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.translator.Stream(ctx, session.Id, req.Query), nil
}

// prepare validates the session and persists the user's message before the
// workflow starts, so the query survives even if the run fails.
func (s *researchService) prepare(ctx context.Context, req *dto.SendChatRequest) (*entity.ChatSession, *entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: req.ChatSessionId})
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, fmt.Errorf("chat session not found")
	}

	sent := entity.ChatMessage{
		Id:            uuid.New(),
		Content:       req.Query,
		Role:          entity.RoleUser,
		ChatSessionId: session.Id,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &sent); err != nil {
		return nil, nil, err
	}

	// First message names the session
	if session.Title == defaultSessionTitle {
		session.Title = truncateTitle(req.Query)
		if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
			s.logger.Warn("research", "failed to retitle session", map[string]interface{}{
				"session_id": session.Id, "error": err.Error(),
			})
		}
	}

	return session, &sent, nil
}

// SaveAnswer persists the assistant's answer with its research metadata.
// It also implements stream.Persister for the streaming path.
func (s *researchService) SaveAnswer(ctx context.Context, sessionId uuid.UUID, result *agent.Result) (uuid.UUID, error) {
	reply := entity.ChatMessage{
		Id:             uuid.New(),
		Content:        result.Answer,
		Role:           entity.RoleAssistant,
		ChatSessionId:  sessionId,
		Sources:        result.Sources,
		DocumentsUsed:  result.DocumentsUsed,
		RelevanceScore: result.RelevanceScore,
		Iterations:     result.Iterations,
		CreatedAt:      time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().Create(ctx, &reply); err != nil {
		return uuid.Nil, err
	}

	if s.eventPublisher != nil {
		evt := events.NewResearchCompleted(sessionId, reply.Id, result.Query, result.Iterations, result.RelevanceScore)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("research", "failed to publish completion event", map[string]interface{}{"error": err.Error()})
		}
	}

	return reply.Id, nil
}

func truncateTitle(query string) string {
	runes := []rune(query)
	if len(runes) <= sessionTitleMaxLen {
		return query
	}
	return string(runes[:sessionTitleMaxLen-3]) + "..."
}

// generatorAdapter bridges the provider-agnostic llm contract to the
// workflow engine's Generator interfaces.
type generatorAdapter struct {
	provider llm.LLMProvider
}

func newGeneratorAdapter(provider llm.LLMProvider) *generatorAdapter {
	return &generatorAdapter{provider: provider}
}

func (g *generatorAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Generate(ctx, prompt)
}

func (g *generatorAdapter) GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
	if sp, ok := g.provider.(llm.StreamingProvider); ok {
		return sp.GenerateStream(ctx, prompt, onToken)
	}
	// Non-streaming providers still produce the full answer, just without
	// incremental tokens.
	return g.provider.Generate(ctx, prompt)
}
