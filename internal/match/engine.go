// Package match implements the per-document near-duplicate matching engine:
// a Rabin-Karp style scan that fingerprints every document n-gram, filters
// against the query's fingerprint index, and confirms candidate spans with
// weighted Jaccard verification. Each (query, document) scan is a small
// state machine - scanning, verifying on a fingerprint hit, and either
// matched (early exit) or exhausted at the end of the document.
package match

import (
	"github.com/overlap-ml/neardup/internal/ngram"
	"github.com/overlap-ml/neardup/internal/similarity"
	"github.com/overlap-ml/neardup/internal/token"
)

// Outcome summarises one (query, document) scan.
type Outcome struct {
	// Matched reports whether any span scored at or above the threshold.
	Matched bool
	// Spans is the number of confirmed candidate starts. Scan stops at the
	// first, so it reports at most 1; ScanSpans counts them all.
	Spans int
	// Hits counts fingerprint hits that triggered verification.
	Hits int
	// Verified counts weighted-Jaccard span verifications performed.
	Verified int
}

// Engine scans documents for spans near-duplicate to one query. It is
// immutable after construction and safe to share across goroutines; the
// stateful hashers live on the stack of each scan.
type Engine struct {
	index     *ngram.QueryIndex
	threshold float64
}

// NewEngine builds the query's fingerprint index once. The resolved hash
// family is recorded in the index and reused for every document scan, so
// the two sides always fingerprint with the same family.
func NewEngine(query token.Sequence, n int, threshold float64, strategy ngram.Strategy) *Engine {
	return &Engine{
		index:     ngram.BuildIndex(query, n, strategy),
		threshold: threshold,
	}
}

// Index returns the engine's query index.
func (e *Engine) Index() *ngram.QueryIndex { return e.index }

// Scan reports whether doc contains at least one span whose n-gram multiset
// similarity to the query meets the threshold, stopping at the first
// confirmed span.
//
// For each window start i in [0, max(|d|-|s|, 0)), a fingerprint hit
// triggers verification of candidate starts j in [max(i-|s|+n, 0), i). The
// upper bound excludes i itself: only spans beginning strictly before the
// hit position are verified. A document shorter than the query can never
// match, even if it equals a prefix of it, and a query shorter than n
// yields an empty index that never hits.
func (e *Engine) Scan(doc token.Sequence) Outcome {
	var out Outcome
	qLen := e.index.QueryLen()
	n := e.index.N()
	limit := len(doc) - qLen
	if qLen < n || limit <= 0 {
		return out
	}
	outer := ngram.NewHasher(e.index.Strategy(), n)
	verifier := ngram.NewHasher(e.index.Strategy(), n)
	var h uint64
	for i := 0; i < limit; i++ {
		if i == 0 {
			h = outer.First(doc, 0)
		} else {
			h = outer.Next(doc, i)
		}
		if !e.index.Contains(h) {
			continue
		}
		out.Hits++
		for j := max(i-qLen+n, 0); j < i; j++ {
			out.Verified++
			span := ngram.SpanMultiset(verifier, doc, j, qLen)
			if similarity.WeightedJaccard(e.index.Grams(), span) >= e.threshold {
				out.Matched = true
				out.Spans = 1
				return out
			}
		}
	}
	return out
}

// ScanSpans counts every confirmed candidate start instead of stopping at
// the first. Overlapping hit windows would verify the same start repeatedly,
// so a cursor ensures each candidate start is verified and counted at most
// once.
func (e *Engine) ScanSpans(doc token.Sequence) Outcome {
	var out Outcome
	qLen := e.index.QueryLen()
	n := e.index.N()
	limit := len(doc) - qLen
	if qLen < n || limit <= 0 {
		return out
	}
	outer := ngram.NewHasher(e.index.Strategy(), n)
	verifier := ngram.NewHasher(e.index.Strategy(), n)
	var h uint64
	nextStart := 0
	for i := 0; i < limit; i++ {
		if i == 0 {
			h = outer.First(doc, 0)
		} else {
			h = outer.Next(doc, i)
		}
		if !e.index.Contains(h) {
			continue
		}
		out.Hits++
		for j := max(i-qLen+n, nextStart); j < i; j++ {
			out.Verified++
			span := ngram.SpanMultiset(verifier, doc, j, qLen)
			if similarity.WeightedJaccard(e.index.Grams(), span) >= e.threshold {
				out.Spans++
			}
		}
		if i > nextStart {
			nextStart = i
		}
	}
	out.Matched = out.Spans > 0
	return out
}
