// Package similarity turns a fingerprint hit into a decision. Candidate
// spans are scored with weighted Jaccard similarity over n-gram fingerprint
// multisets; hash collisions from the filtering layer are tolerated because
// this recomputation is the only thing that confirms a match.
package similarity

import "github.com/overlap-ml/neardup/internal/ngram"

// WeightedJaccard returns sum(min(countA, countB)) / sum(max(countA,
// countB)) over the union of fingerprints in a and b. The result is in
// [0,1]: 1 iff the multisets are identical, 0 when their supports are
// disjoint and at least one side is nonempty, and 0 by definition when both
// are empty.
func WeightedJaccard(a, b *ngram.Multiset) float64 {
	if a.Total() == 0 && b.Total() == 0 {
		return 0
	}
	// Only the intersection needs per-element counts:
	// sum(max) = total(a) + total(b) - sum(min).
	small, large := a, b
	if b.Distinct() < a.Distinct() {
		small, large = b, a
	}
	intersection := 0
	small.Range(func(h uint64, count int) bool {
		if other := large.Count(h); other < count {
			intersection += other
		} else {
			intersection += count
		}
		return true
	})
	union := a.Total() + b.Total() - intersection
	return float64(intersection) / float64(union)
}
