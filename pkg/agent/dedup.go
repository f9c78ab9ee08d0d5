package agent

import "hash/fnv"

// Deduplicate removes chunks with identical content, keeping the first
// occurrence and preserving order. Identity is the exact content hash;
// there is no near-duplicate detection. Running it on its own output is
// a no-op.
func Deduplicate(chunks []Chunk) []Chunk {
	seen := make(map[uint64]struct{}, len(chunks))
	unique := make([]Chunk, 0, len(chunks))

	for _, c := range chunks {
		h := contentHash(c.Content)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, c)
	}

	return unique
}

func contentHash(content string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(content))
	return h.Sum64()
}
