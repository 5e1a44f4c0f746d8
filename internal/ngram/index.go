package ngram

import (
	"github.com/overlap-ml/neardup/internal/token"
	"github.com/overlap-ml/neardup/pkg/errors"
)

// Multiset counts occurrences of n-gram fingerprints. Near-duplicate
// verification needs multiplicities, not mere membership: a span that
// repeats one of the query's n-grams five times is not five times as
// similar.
type Multiset struct {
	counts map[uint64]int
	total  int
}

// NewMultiset creates an empty Multiset sized for the expected number of
// distinct fingerprints.
func NewMultiset(capacity int) *Multiset {
	if capacity < 0 {
		capacity = 0
	}
	return &Multiset{counts: make(map[uint64]int, capacity)}
}

// Add records one occurrence of the fingerprint h.
func (m *Multiset) Add(h uint64) {
	m.counts[h]++
	m.total++
}

// Count returns the multiplicity of h, zero if absent.
func (m *Multiset) Count(h uint64) int { return m.counts[h] }

// Total returns the sum of all multiplicities.
func (m *Multiset) Total() int { return m.total }

// Distinct returns the number of distinct fingerprints.
func (m *Multiset) Distinct() int { return len(m.counts) }

// Range calls fn for each distinct fingerprint until fn returns false.
func (m *Multiset) Range(fn func(h uint64, count int) bool) {
	for h, c := range m.counts {
		if !fn(h, c) {
			return
		}
	}
}

// QueryIndex is the read-only fingerprint multiset of one query, built once
// and shared across all documents and workers scanning for that query.
type QueryIndex struct {
	n        int
	queryLen int
	strategy Strategy
	grams    *Multiset
}

// BuildIndex fingerprints every n-gram of s with a hasher of the given
// family. When |s| < n the index is empty and can never produce a hit.
func BuildIndex(s token.Sequence, n int, strategy Strategy) *QueryIndex {
	resolved := strategy.Resolve(n)
	ix := &QueryIndex{
		n:        n,
		queryLen: len(s),
		strategy: resolved,
		grams:    NewMultiset(max(len(s)-n+1, 0)),
	}
	if len(s) < n {
		return ix
	}
	h := NewHasher(resolved, n)
	ix.grams.Add(h.First(s, 0))
	for i := 1; i <= len(s)-n; i++ {
		ix.grams.Add(h.Next(s, i))
	}
	return ix
}

// Contains reports whether h occurs in the query at least once.
func (ix *QueryIndex) Contains(h uint64) bool { return ix.grams.Count(h) > 0 }

// Multiplicity returns how many query n-grams share the fingerprint h.
func (ix *QueryIndex) Multiplicity(h uint64) int { return ix.grams.Count(h) }

// Grams exposes the underlying multiset for similarity scoring. Callers must
// treat it as read-only.
func (ix *QueryIndex) Grams() *Multiset { return ix.grams }

// N returns the n-gram size the index was built with.
func (ix *QueryIndex) N() int { return ix.n }

// QueryLen returns the length of the indexed query.
func (ix *QueryIndex) QueryLen() int { return ix.queryLen }

// Strategy returns the resolved hash family; document scans must use the
// same one.
func (ix *QueryIndex) Strategy() Strategy { return ix.strategy }

// Validate checks the construction invariant: the multiplicities must sum to
// the number of n-gram windows in the query. A failure indicates a defect,
// not bad input.
func (ix *QueryIndex) Validate() error {
	want := max(ix.queryLen-ix.n+1, 0)
	if ix.grams.Total() != want {
		return errors.Newf(errors.ErrInvariant, "",
			"query index holds %d n-grams, want %d for |s|=%d n=%d",
			ix.grams.Total(), want, ix.queryLen, ix.n)
	}
	return nil
}

// SpanMultiset fingerprints the n-grams of s[start : start+length] with the
// given hasher, reusing its incremental state within the span.
func SpanMultiset(h Hasher, s token.Sequence, start, length int) *Multiset {
	n := h.N()
	m := NewMultiset(max(length-n+1, 0))
	if length < n {
		return m
	}
	m.Add(h.First(s, start))
	for i := start + 1; i <= start+length-n; i++ {
		m.Add(h.Next(s, i))
	}
	return m
}
