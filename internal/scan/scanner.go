// Package scan orchestrates the matching engine across a corpus: one
// read-only query index per query, every (query, document) pair scanned on
// a worker pool, and per-query counts that come out identical regardless of
// scheduling order or worker count.
package scan

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/overlap-ml/neardup/internal/corpus"
	"github.com/overlap-ml/neardup/internal/match"
	"github.com/overlap-ml/neardup/internal/ngram"
	"github.com/overlap-ml/neardup/pkg/config"
	"github.com/overlap-ml/neardup/pkg/errors"
)

// Mode selects the aggregation granularity.
type Mode string

const (
	// ModeDocument counts documents containing at least one matching span
	// and early-exits each document on the first confirmed span.
	ModeDocument Mode = "document"
	// ModeSpan counts every matching span; no early exit.
	ModeSpan Mode = "span"
)

// Params are the validated scan parameters.
type Params struct {
	N            int
	Threshold    float64
	Strategy     ngram.Strategy
	Mode         Mode
	Workers      int
	TrackMatches bool
}

// ParamsFromConfig validates the scan section of the configuration. All
// violations are configuration errors and fatal before any scanning starts.
func ParamsFromConfig(cfg config.ScanConfig) (Params, error) {
	var p Params
	if cfg.NgramSize < 1 {
		return p, errors.Newf(errors.ErrInvalidConfig, "", "ngram size must be >= 1, got %d", cfg.NgramSize)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return p, errors.Newf(errors.ErrInvalidConfig, "", "threshold must be in [0,1], got %g", cfg.Threshold)
	}
	strategy, err := ngram.ParseStrategy(cfg.Strategy)
	if err != nil {
		return p, errors.Newf(errors.ErrInvalidConfig, "", "%v", err)
	}
	mode := Mode(cfg.Mode)
	switch mode {
	case ModeDocument, ModeSpan:
	default:
		return p, errors.Newf(errors.ErrInvalidConfig, "", "mode must be document or span, got %q", cfg.Mode)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return Params{
		N:            cfg.NgramSize,
		Threshold:    cfg.Threshold,
		Strategy:     strategy,
		Mode:         mode,
		Workers:      workers,
		TrackMatches: cfg.TrackMatches,
	}, nil
}

// Result is the aggregate for one query over the whole corpus.
type Result struct {
	QueryID     string
	Matched     int64    // documents with at least one confirmed span
	Spans       int64    // confirmed spans (ModeSpan; 0 < Spans implies Matched > 0)
	MatchedDocs []string // populated only when TrackMatches is set
}

// Summary is the outcome of one corpus run. Skipped inputs are reported by
// identifier, separately from zero-match counts.
type Summary struct {
	Results        []Result
	DocsScanned    int
	SkippedDocs    []string
	SkippedQueries []string
	Elapsed        time.Duration
}

// Scanner runs the match engine for every (query, document) pair.
type Scanner struct {
	params Params
	obs    Observer
	logger *slog.Logger
}

// New creates a Scanner. A nil observer is replaced by NopObserver.
func New(params Params, obs Observer) *Scanner {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Scanner{
		params: params,
		obs:    obs,
		logger: slog.Default().With("component", "corpus-scanner"),
	}
}

// Run scans every document for every query and returns per-query counts.
// Documents are scheduled across the worker pool; each (query, document)
// scan is independent and read-only, so aggregation uses one atomic counter
// per query and the outcome is scheduling-order independent. An empty
// document slice is a fatal ErrNoCorpus.
func (s *Scanner) Run(ctx context.Context, queries, docs []corpus.Item) (*Summary, error) {
	start := time.Now()
	if len(docs) == 0 {
		return nil, errors.Newf(errors.ErrNoCorpus, "", "no documents to scan")
	}
	if len(queries) == 0 {
		return nil, errors.Newf(errors.ErrNoQueries, "", "no queries to scan for")
	}

	engines := make([]*match.Engine, len(queries))
	for qi, q := range queries {
		engines[qi] = match.NewEngine(q.Tokens, s.params.N, s.params.Threshold, s.params.Strategy)
		if err := engines[qi].Index().Validate(); err != nil {
			// Construction defect, never bad input; abort loudly.
			return nil, err
		}
		s.obs.OnQueryIndexed(q.ID)
	}
	strategy := string(s.params.Strategy.Resolve(s.params.N))
	s.logger.Info("corpus scan starting",
		"queries", len(queries),
		"documents", len(docs),
		"n", s.params.N,
		"threshold", s.params.Threshold,
		"strategy", strategy,
		"mode", string(s.params.Mode),
		"workers", s.params.Workers,
	)

	matched := make([]atomic.Int64, len(queries))
	spans := make([]atomic.Int64, len(queries))
	var matchedDocs [][]string
	var matchedMu []sync.Mutex
	if s.params.TrackMatches {
		matchedDocs = make([][]string, len(queries))
		matchedMu = make([]sync.Mutex, len(queries))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.params.Workers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for qi, engine := range engines {
				scanStart := time.Now()
				var out match.Outcome
				if s.params.Mode == ModeSpan {
					out = engine.ScanSpans(doc.Tokens)
				} else {
					out = engine.Scan(doc.Tokens)
				}
				if out.Matched {
					matched[qi].Add(1)
					spans[qi].Add(int64(out.Spans))
					if s.params.TrackMatches {
						matchedMu[qi].Lock()
						matchedDocs[qi] = append(matchedDocs[qi], doc.ID)
						matchedMu[qi].Unlock()
					}
				}
				s.obs.OnDocumentScanned(queries[qi].ID, doc.ID, out.Matched, ScanStats{
					Hits:     out.Hits,
					Verified: out.Verified,
					Spans:    out.Spans,
					Duration: time.Since(scanStart),
					Strategy: strategy,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Results:     make([]Result, len(queries)),
		DocsScanned: len(docs),
		Elapsed:     time.Since(start),
	}
	for qi, q := range queries {
		r := Result{
			QueryID: q.ID,
			Matched: matched[qi].Load(),
			Spans:   spans[qi].Load(),
		}
		if s.params.TrackMatches {
			sort.Strings(matchedDocs[qi])
			r.MatchedDocs = matchedDocs[qi]
		}
		summary.Results[qi] = r
		s.obs.OnCorpusComplete(q.ID, r.Matched)
	}
	s.logger.Info("corpus scan complete",
		"documents", len(docs),
		"queries", len(queries),
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}
