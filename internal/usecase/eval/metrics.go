package eval

import "math"

// accuracyAt reports 1 when any expected key appears in the ranked keys, 0
// otherwise.
func accuracyAt(ranked []string, expected map[string]bool) float64 {
	for _, key := range ranked {
		if expected[key] {
			return 1
		}
	}
	return 0
}

// reciprocalRank returns 1/rank of the first expected key, 0 when none hit.
func reciprocalRank(ranked []string, expected map[string]bool) float64 {
	for i, key := range ranked {
		if expected[key] {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// ndcgAt computes normalized DCG with binary relevance: a hit at 1-based
// position i gains 1/log2(i+1). The ideal DCG assumes min(|expected|, k)
// relevant items at the top. Zero ideal DCG yields zero.
func ndcgAt(ranked []string, expected map[string]bool, k int) float64 {
	var dcg float64
	for i, key := range ranked {
		if i >= k {
			break
		}
		if expected[key] {
			dcg += 1 / math.Log2(float64(i+2))
		}
	}

	ideal := len(expected)
	if ideal > k {
		ideal = k
	}
	var idcg float64
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
