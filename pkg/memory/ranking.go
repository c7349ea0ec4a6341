package memory

import (
	"sort"
	"time"
)

// Ranked is any long-term record that carries a relevance score.
type Ranked interface {
	RelevanceScore() float64
	LastUsedAt() time.Time
}

// TopByRelevance selects the k highest-relevance records from a keyed
// collection. Ties break toward the most recently used record. The same
// selection rule backs prompt injection and category eviction, so it lives
// here once.
func TopByRelevance[T Ranked](items map[string]T, k int) []T {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore() == out[j].RelevanceScore() {
			return out[i].LastUsedAt().After(out[j].LastUsedAt())
		}
		return out[i].RelevanceScore() > out[j].RelevanceScore()
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// LowestRelevance returns the key of the least relevant record, ties broken
// toward the least recently used. Used when a category exceeds its cap.
func LowestRelevance[T Ranked](items map[string]T) (string, bool) {
	found := false
	var worstKey string
	var worst T
	for key, it := range items {
		if !found {
			worstKey, worst, found = key, it, true
			continue
		}
		if it.RelevanceScore() < worst.RelevanceScore() ||
			(it.RelevanceScore() == worst.RelevanceScore() && it.LastUsedAt().Before(worst.LastUsedAt())) {
			worstKey, worst = key, it
		}
	}
	return worstKey, found
}
