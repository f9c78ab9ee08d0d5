package service

import (
	"context"
	"fmt"
	"time"

	"ai-research-agent-be/internal/dto"
	"ai-research-agent-be/internal/entity"
	"ai-research-agent-be/internal/repository/specification"
	"ai-research-agent-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const defaultSessionTitle = "New Research Session"

type ISessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAll(ctx context.Context) ([]*dto.GetAllSessionsResponse, error)
	History(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	Update(ctx context.Context, req *dto.UpdateSessionRequest) (*dto.GetAllSessionsResponse, error)
	Delete(ctx context.Context, sessionId uuid.UUID) error
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewSessionService(uowFactory unitofwork.RepositoryFactory) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
	}
}

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := req.Title
	if title == "" {
		title = defaultSessionTitle
	}

	session := entity.ChatSession{
		Id:        uuid.New(),
		Title:     title,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{
		Id:    session.Id,
		Title: session.Title,
	}, nil
}

func (s *sessionService) GetAll(ctx context.Context) ([]*dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetAllSessionsResponse, len(sessions))
	for i, session := range sessions {
		res[i] = toSessionResponse(session)
	}
	return res, nil
}

func (s *sessionService) Update(ctx context.Context, req *dto.UpdateSessionRequest) (*dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session not found")
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Archived != nil {
		session.Archived = *req.Archived
	}

	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}

	return toSessionResponse(session), nil
}

func (s *sessionService) History(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session not found")
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetChatHistoryResponse, len(messages))
	for i, msg := range messages {
		res[i] = &dto.GetChatHistoryResponse{
			Id:             msg.Id,
			Role:           msg.Role,
			Content:        msg.Content,
			Sources:        msg.Sources,
			DocumentsUsed:  msg.DocumentsUsed,
			RelevanceScore: msg.RelevanceScore,
			Iterations:     msg.Iterations,
			CreatedAt:      msg.CreatedAt,
		}
	}
	return res, nil
}

func (s *sessionService) Delete(ctx context.Context, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}

	return uow.Commit()
}

func toSessionResponse(session *entity.ChatSession) *dto.GetAllSessionsResponse {
	return &dto.GetAllSessionsResponse{
		Id:        session.Id,
		Title:     session.Title,
		Archived:  session.Archived,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
}
