package embedding

import (
	"testing"
	"time"
)

type countingProvider struct {
	calls int
}

func (p *countingProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	p.calls++
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: []float32{float32(len(text))}},
	}, nil
}

func TestCachedProviderServesHitsLocally(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, time.Minute)

	first, err := cached.Generate("hello", TaskRetrievalQuery)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cached.Generate("hello", TaskRetrievalQuery)
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
	if first.Embedding.Values[0] != second.Embedding.Values[0] {
		t.Error("cached response differs from original")
	}
}

func TestCachedProviderKeysOnTaskType(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, time.Minute)

	if _, err := cached.Generate("hello", TaskRetrievalQuery); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Generate("hello", TaskRetrievalDocument); err != nil {
		t.Fatal(err)
	}

	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2 (task types must not share entries)", inner.calls)
	}
}
