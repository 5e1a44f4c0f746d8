package match

import (
	"github.com/overlap-ml/neardup/internal/ngram"
	"github.com/overlap-ml/neardup/internal/similarity"
	"github.com/overlap-ml/neardup/internal/token"
)

// Naive verifies every span start in [0, max(|d|-|s|, 0)) unconditionally,
// with no fingerprint filtering. O(|d|*|s|) regardless of content; it exists
// as the benchmark baseline the filtered engine is measured against.
type Naive struct {
	index     *ngram.QueryIndex
	threshold float64
}

// NewNaive builds a naive matcher with the same verifier configuration as
// the filtered engine.
func NewNaive(query token.Sequence, n int, threshold float64, strategy ngram.Strategy) *Naive {
	return &Naive{
		index:     ngram.BuildIndex(query, n, strategy),
		threshold: threshold,
	}
}

// Scan verifies each offset in order and stops at the first span meeting
// the threshold.
func (m *Naive) Scan(doc token.Sequence) Outcome {
	var out Outcome
	qLen := m.index.QueryLen()
	n := m.index.N()
	limit := len(doc) - qLen
	if qLen < n || limit <= 0 {
		return out
	}
	verifier := ngram.NewHasher(m.index.Strategy(), n)
	for j := 0; j < limit; j++ {
		out.Verified++
		span := ngram.SpanMultiset(verifier, doc, j, qLen)
		if similarity.WeightedJaccard(m.index.Grams(), span) >= m.threshold {
			out.Matched = true
			out.Spans = 1
			return out
		}
	}
	return out
}
