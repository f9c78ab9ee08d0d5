package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider wraps another provider with an in-memory read-through
// cache. Re-embedding identical text (repeated queries, re-ingested
// documents) is wasted provider round-trips, so hits are served locally.
type CachedProvider struct {
	inner EmbeddingProvider
	cache *gocache.Cache
}

func NewCachedProvider(inner EmbeddingProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	key := cacheKey(text, taskType)
	if cached, found := p.cache.Get(key); found {
		return cached.(*EmbeddingResponse), nil
	}

	resp, err := p.inner.Generate(text, taskType)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, resp, gocache.DefaultExpiration)
	return resp, nil
}

// cacheKey hashes text so arbitrarily long chunks produce fixed-size keys.
// Task type is part of the key: the same text embeds differently for
// indexing vs querying on providers that honor it.
func cacheKey(text, taskType string) string {
	h := sha256.New()
	h.Write([]byte(taskType))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
