package rag

import (
	"context"
	"fmt"
	"strconv"

	"ai-research-agent-be/internal/pkg/logger"
	"ai-research-agent-be/internal/repository/unitofwork"
	"ai-research-agent-be/pkg/agent"
	"ai-research-agent-be/pkg/embedding"
)

// Config encapsulates retrieval parameters
type Config struct {
	// CandidateMultiplier controls how many candidates are fetched per
	// requested result before MMR re-ranking.
	CandidateMultiplier int
	Lambda              float64
	DBThreshold         float64
}

// DefaultConfig returns default retrieval configuration
func DefaultConfig() Config {
	return Config{
		CandidateMultiplier: 4,
		Lambda:              DefaultLambda,
		DBThreshold:         0.0,
	}
}

// Retriever answers similarity queries over the ingested document corpus.
// It embeds the query, over-fetches candidates from pgvector, then
// re-ranks with MMR to keep the final set diverse.
type Retriever struct {
	repoFactory       unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	config            Config
	logger            logger.ILogger
}

var _ agent.Retriever = &Retriever{}

func NewRetriever(
	repoFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	config Config,
	log logger.ILogger,
) *Retriever {
	if config.CandidateMultiplier <= 0 {
		config.CandidateMultiplier = 4
	}
	if config.Lambda <= 0 || config.Lambda > 1 {
		config.Lambda = DefaultLambda
	}
	return &Retriever{
		repoFactory:       repoFactory,
		embeddingProvider: embeddingProvider,
		config:            config,
		logger:            log,
	}
}

func (r *Retriever) Search(ctx context.Context, query string, k int) ([]agent.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	embeddingRes, err := r.embeddingProvider.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	queryVector := embeddingRes.Embedding.Values

	uow := r.repoFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentChunkRepository().SearchSimilarWithScore(
		ctx,
		queryVector,
		k*r.config.CandidateMultiplier,
		r.config.DBThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	r.logger.Debug("rag", "vector search returned candidates", map[string]interface{}{
		"query":      query,
		"candidates": len(scored),
		"top_k":      k,
	})

	if len(scored) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(scored))
	for i, s := range scored {
		vectors[i] = s.Chunk.EmbeddingValue
	}
	selected := MMRSelect(queryVector, vectors, k, r.config.Lambda)

	chunks := make([]agent.Chunk, 0, len(selected))
	for _, idx := range selected {
		s := scored[idx]
		chunks = append(chunks, agent.Chunk{
			Content: s.Chunk.Content,
			Metadata: map[string]string{
				"source":      s.Source,
				"document_id": s.Chunk.DocumentId.String(),
				"chunk_index": strconv.Itoa(s.Chunk.ChunkIndex),
				"similarity":  strconv.FormatFloat(s.Similarity, 'f', 4, 64),
			},
		})
	}

	return chunks, nil
}
