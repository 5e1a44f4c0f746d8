// Package bench generates synthetic token corpora and measures matcher
// throughput, comparing the filtered engine under both hash families
// against the unfiltered naive baseline.
package bench

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/overlap-ml/neardup/internal/match"
	"github.com/overlap-ml/neardup/internal/ngram"
	"github.com/overlap-ml/neardup/internal/token"
)

// Params controls corpus generation and the matcher configuration under
// test. Zero values are filled in by Defaults.
type Params struct {
	Seed       int64
	VocabSize  uint32
	QueryLen   int
	DocLen     int
	NumDocs    int
	Corrupted  int
	NgramSize  int
	Threshold  float64
	PlantEvery int
}

// Defaults returns the standard harness configuration.
func Defaults() Params {
	return Params{
		Seed:       42,
		VocabSize:  50254,
		QueryLen:   50,
		DocLen:     2048,
		NumDocs:    200,
		Corrupted:  5,
		NgramSize:  10,
		Threshold:  0.6,
		PlantEvery: 4,
	}
}

// Corpus is a generated benchmark workload: one query and a document set
// where every PlantEvery-th document carries a planted span. Planted spans
// alternate between verbatim copies of the query and copies with Corrupted
// token substitutions.
type Corpus struct {
	Query   token.Sequence
	Docs    []token.Sequence
	Planted int
}

// Generate builds a deterministic corpus from p.Seed.
func Generate(p Params) *Corpus {
	rng := rand.New(rand.NewSource(p.Seed))

	query := randomSequence(rng, p.QueryLen, p.VocabSize)
	docs := make([]token.Sequence, p.NumDocs)
	planted := 0
	for d := range docs {
		doc := randomSequence(rng, p.DocLen, p.VocabSize)
		if p.PlantEvery > 0 && d%p.PlantEvery == 0 {
			span := make(token.Sequence, len(query))
			copy(span, query)
			if planted%2 == 1 {
				corrupt(rng, span, p.Corrupted, p.VocabSize)
			}
			// Keep the span strictly inside the document so candidate
			// starts before every hit position exist.
			pos := 1 + rng.Intn(len(doc)-len(span)-1)
			copy(doc[pos:], span)
			planted++
		}
		docs[d] = doc
	}
	return &Corpus{Query: query, Docs: docs, Planted: planted}
}

func randomSequence(rng *rand.Rand, length int, vocab uint32) token.Sequence {
	s := make(token.Sequence, length)
	for i := range s {
		s[i] = rng.Uint32() % vocab
	}
	return s
}

// corrupt substitutes count distinct positions with fresh random tokens.
func corrupt(rng *rand.Rand, s token.Sequence, count int, vocab uint32) {
	seen := make(map[int]struct{}, count)
	for len(seen) < count && len(seen) < len(s) {
		pos := rng.Intn(len(s))
		if _, dup := seen[pos]; dup {
			continue
		}
		seen[pos] = struct{}{}
		replacement := rng.Uint32() % vocab
		for replacement == s[pos] {
			replacement = rng.Uint32() % vocab
		}
		s[pos] = replacement
	}
}

// matcher abstracts the filtered engine and the naive baseline so the
// harness can time them through one loop.
type matcher interface {
	Scan(doc token.Sequence) match.Outcome
}

// Result is the measurement for one matcher variant over the corpus.
type Result struct {
	Name       string
	Matched    int
	Hits       int
	Verified   int
	Elapsed    time.Duration
	DocsPerSec float64
}

// Report holds one Result per variant plus the workload they ran against.
type Report struct {
	Params  Params
	Planted int
	Results []Result
}

// Harness runs each matcher variant over the same generated corpus.
type Harness struct {
	params Params
	logger *slog.Logger
}

func NewHarness(p Params) *Harness {
	return &Harness{
		params: p,
		logger: slog.Default().With("component", "bench-harness"),
	}
}

// Run generates the corpus and times the content-hash engine, the
// rolling-hash engine, and the naive baseline over it. All variants must
// agree on which documents match; a disagreement is returned as an error.
func (h *Harness) Run() (*Report, error) {
	p := h.params
	corpus := Generate(p)
	h.logger.Info("corpus generated",
		"docs", len(corpus.Docs),
		"planted", corpus.Planted,
		"query_len", len(corpus.Query),
	)

	variants := []struct {
		name string
		m    matcher
	}{
		{"content", match.NewEngine(corpus.Query, p.NgramSize, p.Threshold, ngram.StrategyContent)},
		{"rolling", match.NewEngine(corpus.Query, p.NgramSize, p.Threshold, ngram.StrategyRolling)},
		{"naive", match.NewNaive(corpus.Query, p.NgramSize, p.Threshold, ngram.StrategyContent)},
	}

	report := &Report{Params: p, Planted: corpus.Planted}
	var matchedDocs []map[int]bool
	for _, v := range variants {
		result, perDoc := h.measure(v.name, v.m, corpus)
		report.Results = append(report.Results, result)
		matchedDocs = append(matchedDocs, perDoc)
	}

	// The engines differ only in fingerprint family and filtering, not in
	// verification, so the filtered variants must agree with each other and
	// find at most what the exhaustive baseline finds.
	content, rolling, naive := matchedDocs[0], matchedDocs[1], matchedDocs[2]
	for d := range corpus.Docs {
		if content[d] != rolling[d] {
			return nil, fmt.Errorf("hash families disagree on doc %d: content=%v rolling=%v", d, content[d], rolling[d])
		}
		if content[d] && !naive[d] {
			return nil, fmt.Errorf("filtered engine matched doc %d but baseline did not", d)
		}
	}
	return report, nil
}

func (h *Harness) measure(name string, m matcher, corpus *Corpus) (Result, map[int]bool) {
	perDoc := make(map[int]bool, len(corpus.Docs))
	result := Result{Name: name}
	start := time.Now()
	for d, doc := range corpus.Docs {
		out := m.Scan(doc)
		result.Hits += out.Hits
		result.Verified += out.Verified
		if out.Matched {
			result.Matched++
			perDoc[d] = true
		}
	}
	result.Elapsed = time.Since(start)
	if secs := result.Elapsed.Seconds(); secs > 0 {
		result.DocsPerSec = float64(len(corpus.Docs)) / secs
	}
	h.logger.Info("variant measured",
		"variant", name,
		"matched", result.Matched,
		"verified", result.Verified,
		"elapsed", result.Elapsed,
		"docs_per_sec", fmt.Sprintf("%.1f", result.DocsPerSec),
	)
	return result, perDoc
}
