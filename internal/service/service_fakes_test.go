package service

import (
	"context"
	"strings"

	"ai-research-agent-be/internal/entity"
	"ai-research-agent-be/internal/repository/contract"
	"ai-research-agent-be/internal/repository/specification"
	"ai-research-agent-be/internal/repository/unitofwork"
	"ai-research-agent-be/pkg/agent"
	"ai-research-agent-be/pkg/llm"

	"github.com/google/uuid"
)

// In-memory unit of work. Specifications are matched by type switch since
// the real ones only know how to build GORM queries.

type fakeUowFactory struct {
	uow *fakeUow
}

func newFakeUowFactory() *fakeUowFactory {
	return &fakeUowFactory{uow: &fakeUow{
		sessions:  &fakeSessionRepo{store: map[uuid.UUID]*entity.ChatSession{}},
		messages:  &fakeMessageRepo{},
		documents: &fakeDocumentRepo{store: map[uuid.UUID]*entity.Document{}},
		chunks:    &fakeChunkRepo{},
	}}
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

type fakeUow struct {
	sessions  *fakeSessionRepo
	messages  *fakeMessageRepo
	documents *fakeDocumentRepo
	chunks    *fakeChunkRepo

	committed  int
	rolledBack int
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { u.committed++; return nil }
func (u *fakeUow) Rollback() error                 { u.rolledBack++; return nil }

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return u.sessions
}
func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return u.messages
}
func (u *fakeUow) DocumentRepository() contract.DocumentRepository {
	return u.documents
}
func (u *fakeUow) DocumentChunkRepository() contract.DocumentChunkRepository {
	return u.chunks
}

func specID(specs []specification.Specification) (uuid.UUID, bool) {
	for _, s := range specs {
		if byID, ok := s.(specification.ByID); ok {
			return byID.ID, true
		}
	}
	return uuid.Nil, false
}

// Sessions

type fakeSessionRepo struct {
	store map[uuid.UUID]*entity.ChatSession
	order []uuid.UUID
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *entity.ChatSession) error {
	r.store[s.Id] = s
	r.order = append(r.order, s.Id)
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *entity.ChatSession) error {
	r.store[s.Id] = s
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.store, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	if id, ok := specID(specs); ok {
		return r.store[id], nil
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	out := make([]*entity.ChatSession, 0, len(r.store))
	for _, id := range r.order {
		if s, ok := r.store[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store)), nil
}

// Messages

type fakeMessageRepo struct {
	messages []*entity.ChatMessage
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *entity.ChatMessage) error {
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.Id != id {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

func (r *fakeMessageRepo) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	if id, ok := specID(specs); ok {
		for _, m := range r.messages {
			if m.Id == id {
				return m, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var sessionId uuid.UUID
	var bySession bool
	for _, s := range specs {
		if spec, ok := s.(specification.ByChatSessionID); ok {
			sessionId = spec.ChatSessionID
			bySession = true
		}
	}

	var out []*entity.ChatMessage
	for _, m := range r.messages {
		if !bySession || m.ChatSessionId == sessionId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.messages)), nil
}

// Documents

type fakeDocumentRepo struct {
	store map[uuid.UUID]*entity.Document
	order []uuid.UUID
}

func (r *fakeDocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	r.store[d.Id] = d
	r.order = append(r.order, d.Id)
	return nil
}

func (r *fakeDocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	r.store[d.Id] = d
	return nil
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.store, id)
	return nil
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	if id, ok := specID(specs); ok {
		return r.store[id], nil
	}
	return nil, nil
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	out := make([]*entity.Document, 0, len(r.store))
	for _, id := range r.order {
		if d, ok := r.store[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var status string
	for _, s := range specs {
		if byStatus, ok := s.(specification.ByStatus); ok {
			status = byStatus.Status
		}
	}

	var n int64
	for _, d := range r.store {
		if status == "" || d.Status == status {
			n++
		}
	}
	return n, nil
}

// Chunks

type fakeChunkRepo struct {
	chunks []*entity.DocumentChunk
	scored []*contract.ScoredChunk
}

func (r *fakeChunkRepo) Create(ctx context.Context, c *entity.DocumentChunk) error {
	r.chunks = append(r.chunks, c)
	return nil
}

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	r.chunks = append(r.chunks, chunks...)
	return nil
}

func (r *fakeChunkRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (r *fakeChunkRepo) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	kept := r.chunks[:0]
	for _, c := range r.chunks {
		if c.DocumentId != documentId {
			kept = append(kept, c)
		}
	}
	r.chunks = kept
	return nil
}

func (r *fakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	return r.chunks, nil
}

func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.chunks)), nil
}

func (r *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredChunk, error) {
	if limit > len(r.scored) {
		limit = len(r.scored)
	}
	return r.scored[:limit], nil
}

// Capability fakes

type fakePublisher struct {
	published [][]byte
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, payload)
	return nil
}

type fakeRetriever struct {
	chunks []agent.Chunk
}

func (r *fakeRetriever) Search(ctx context.Context, query string, k int) ([]agent.Chunk, error) {
	if k > len(r.chunks) {
		k = len(r.chunks)
	}
	return r.chunks[:k], nil
}

// scriptedLLM answers each workflow prompt by prefix.
type scriptedLLM struct {
	analysis  string
	relevance string
	synthesis string
}

func (p *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", nil
	}
	return p.respond(history[len(history)-1].Content), nil
}

func (p *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.respond(prompt), nil
}

func (p *scriptedLLM) respond(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "Analyze the following research query"):
		return p.analysis
	case strings.HasPrefix(prompt, "Evaluate if the retrieved documents"):
		return p.relevance
	case strings.HasPrefix(prompt, "Synthesize a comprehensive answer"):
		return p.synthesis
	}
	return ""
}
