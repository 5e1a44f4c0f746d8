// Package ngram computes fixed-width fingerprints for n-token windows of a
// sequence and builds the per-query fingerprint multiset the matching engine
// filters against. Two interchangeable hash families are provided: a content
// hash that recomputes each window and a rolling hash that derives each
// window's fingerprint from the previous one in constant time. Collisions
// are expected from both families; a fingerprint hit is only a candidate
// signal and every hit is re-verified by the similarity layer.
package ngram

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/overlap-ml/neardup/internal/token"
)

// Strategy selects the hash family used for a run. A query indexed with one
// family must be matched with the same family; the two produce unrelated
// fingerprints for the same window.
type Strategy string

const (
	StrategyContent Strategy = "content"
	StrategyRolling Strategy = "rolling"
	StrategyAuto    Strategy = "auto"
)

// rollingBreakEven is the n-gram size at which the rolling hash's O(1)
// advance starts beating the content hash's O(n) recompute. Below it the
// content hash wins on constant factors.
const rollingBreakEven = 8

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyContent, StrategyRolling, StrategyAuto:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown hash strategy %q", s)
	}
}

// Resolve maps StrategyAuto to a concrete family for the given n.
func (s Strategy) Resolve(n int) Strategy {
	if s != StrategyAuto {
		return s
	}
	if n >= rollingBreakEven {
		return StrategyRolling
	}
	return StrategyContent
}

// Hasher computes fingerprints for successive n-token windows of one
// sequence. Implementations are stateful and not safe for concurrent use;
// the engine creates one per scan.
type Hasher interface {
	// First computes the fingerprint of s[start : start+n], resetting any
	// incremental state.
	First(s token.Sequence, start int) uint64
	// Next computes the fingerprint of the window at start, assuming the
	// previous call covered the window at start-1.
	Next(s token.Sequence, start int) uint64
	// N returns the window size this hasher was built for.
	N() int
}

// NewHasher returns a Hasher of the resolved family for windows of n tokens.
func NewHasher(strategy Strategy, n int) Hasher {
	switch strategy.Resolve(n) {
	case StrategyRolling:
		return newRollingHasher(n)
	default:
		return newContentHasher(n)
	}
}

// contentHasher fingerprints each window independently with xxhash over the
// window's little-endian byte encoding. O(n) per window.
type contentHasher struct {
	n   int
	buf []byte
}

func newContentHasher(n int) *contentHasher {
	return &contentHasher{n: n, buf: make([]byte, n*4)}
}

func (c *contentHasher) First(s token.Sequence, start int) uint64 {
	for i := 0; i < c.n; i++ {
		binary.LittleEndian.PutUint32(c.buf[i*4:], s[start+i])
	}
	return xxhash.Sum64(c.buf)
}

// Next recomputes from scratch; the content family has no incremental state.
func (c *contentHasher) Next(s token.Sequence, start int) uint64 {
	return c.First(s, start)
}

func (c *contentHasher) N() int { return c.n }
