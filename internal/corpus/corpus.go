// Package corpus supplies the token sequences the scanner runs over. Inputs
// come either from line-delimited JSON files of token ids (optionally
// gzip-compressed) or from a Postgres-backed store. Malformed records and
// unreadable files are skipped and reported by identifier; only an entirely
// unusable corpus is fatal.
package corpus

import "github.com/overlap-ml/neardup/internal/token"

// Item is one query or document: a stable identifier plus its token
// sequence.
type Item struct {
	ID     string
	Tokens token.Sequence
}

// LoadResult carries the usable items plus the identifiers of inputs that
// were skipped, so "not scanned" stays distinguishable from "not matched".
type LoadResult struct {
	Items   []Item
	Skipped []string
}
