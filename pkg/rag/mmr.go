package rag

import "math"

// DefaultLambda balances query relevance against diversity equally.
const DefaultLambda = 0.5

// MMRSelect picks k candidate indices by Maximal Marginal Relevance:
// each round takes the candidate maximizing
//
//	lambda*sim(query, c) - (1-lambda)*max sim(c, already selected)
//
// so near-duplicate chunks stop crowding out coverage of the query.
func MMRSelect(query []float32, candidates [][]float32, k int, lambda float64) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	querySims := make([]float64, len(candidates))
	for i, c := range candidates {
		querySims[i] = CosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	picked := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)

		for i := range candidates {
			if picked[i] {
				continue
			}

			redundancy := 0.0
			for _, s := range selected {
				if sim := CosineSimilarity(candidates[i], candidates[s]); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*querySims[i] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		if best == -1 {
			break
		}
		picked[best] = true
		selected = append(selected, best)
	}

	return selected
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
