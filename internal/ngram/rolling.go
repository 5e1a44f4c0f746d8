package ngram

import (
	"github.com/overlap-ml/neardup/internal/token"
)

// Polynomial rolling hash parameters. The modulus keeps every intermediate
// product below 2^64 (hash < 2^30, base 31), so no wider arithmetic is
// needed.
const (
	rollingBase   uint64 = 31
	rollingModulo uint64 = 1_000_000_007
)

// rollingHasher maintains the hash of the current window and the power of
// the base needed to subtract the leaving token, giving an O(1) advance
// between adjacent windows.
type rollingHasher struct {
	n       int
	hash    uint64
	basePow uint64 // rollingBase^(n-1) mod rollingModulo
}

func newRollingHasher(n int) *rollingHasher {
	basePow := uint64(1)
	for i := 1; i < n; i++ {
		basePow = basePow * rollingBase % rollingModulo
	}
	return &rollingHasher{n: n, basePow: basePow}
}

func (r *rollingHasher) First(s token.Sequence, start int) uint64 {
	r.hash = 0
	for i := 0; i < r.n; i++ {
		r.hash = (r.hash*rollingBase + uint64(s[start+i])) % rollingModulo
	}
	return r.hash
}

// Next slides the window one position right: the token at start-1 leaves and
// the token at start+n-1 enters.
func (r *rollingHasher) Next(s token.Sequence, start int) uint64 {
	leaving := uint64(s[start-1])
	entering := uint64(s[start+r.n-1])
	r.hash = (r.hash + rollingModulo - leaving*r.basePow%rollingModulo) % rollingModulo
	r.hash = (r.hash*rollingBase + entering) % rollingModulo
	return r.hash
}

func (r *rollingHasher) N() int { return r.n }
