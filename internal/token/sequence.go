// Package token defines the token-id sequences that queries and documents
// are made of. Sequences are plain slices treated as immutable once handed
// to the matching engine; callers retain ownership.
package token

import (
	"github.com/overlap-ml/neardup/pkg/errors"
)

// Sequence is an ordered sequence of non-negative token ids.
type Sequence []uint32

// FromInts converts raw int64 token ids (as decoded from JSON or Postgres)
// into a Sequence, rejecting negative or out-of-range values. The input id
// identifies the offending record in the returned error.
func FromInts(inputID string, ids []int64) (Sequence, error) {
	s := make(Sequence, len(ids))
	for i, id := range ids {
		if id < 0 {
			return nil, errors.Newf(errors.ErrMalformedInput, inputID, "negative token id %d at position %d", id, i)
		}
		if id > int64(^uint32(0)) {
			return nil, errors.Newf(errors.ErrMalformedInput, inputID, "token id %d at position %d exceeds 32 bits", id, i)
		}
		s[i] = uint32(id)
	}
	return s, nil
}

// Len returns the number of tokens in the sequence.
func (s Sequence) Len() int { return len(s) }

// Window returns the n-token window starting at offset i. The caller must
// ensure i+n <= len(s).
func (s Sequence) Window(i, n int) Sequence { return s[i : i+n] }
