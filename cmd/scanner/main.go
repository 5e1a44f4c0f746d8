// Command scanner runs one near-duplicate scan of a corpus against a set
// of queries and reports per-query match counts.
//
// Queries and documents are token-id sequences, loaded either from JSONL
// files (optionally gzipped) or from Postgres. Results go to the log, and
// optionally to Postgres, Kafka, and a Redis result cache.
//
// Usage:
//
//	go run ./cmd/scanner [-config configs/development.yaml] [-query data/query.jsonl] [-dir data/corpus]
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/overlap-ml/neardup/internal/corpus"
	"github.com/overlap-ml/neardup/internal/report"
	"github.com/overlap-ml/neardup/internal/scan"
	"github.com/overlap-ml/neardup/pkg/config"
	"github.com/overlap-ml/neardup/pkg/errors"
	"github.com/overlap-ml/neardup/pkg/health"
	"github.com/overlap-ml/neardup/pkg/kafka"
	"github.com/overlap-ml/neardup/pkg/logger"
	"github.com/overlap-ml/neardup/pkg/metrics"
	"github.com/overlap-ml/neardup/pkg/postgres"
	pkgredis "github.com/overlap-ml/neardup/pkg/redis"
	"github.com/overlap-ml/neardup/pkg/resilience"
	"github.com/overlap-ml/neardup/pkg/tracing"
)

// loader abstracts the two corpus sources (files, Postgres).
type loader interface {
	LoadQueries(ctx context.Context) (*corpus.LoadResult, error)
	LoadDocuments(ctx context.Context) (*corpus.LoadResult, error)
}

func main() {
	if err := run(); err != nil {
		slog.Error("scan failed", "error", err)
		os.Exit(errors.ExitCode(err))
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	queryPath := flag.String("query", "", "query JSONL path (overrides config)")
	searchDir := flag.String("dir", "", "corpus directory (overrides config)")
	ngramSize := flag.Int("n", 0, "n-gram size (overrides config)")
	threshold := flag.Float64("threshold", -1, "similarity threshold in [0,1] (overrides config)")
	strategy := flag.String("strategy", "", "hash strategy: content, rolling, auto (overrides config)")
	mode := flag.String("mode", "", "aggregation mode: document, span (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return errors.Newf(errors.ErrInvalidConfig, "", "%v", err)
	}
	applyFlags(cfg, *queryPath, *searchDir, *ngramSize, *threshold, *strategy, *mode)

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	params, err := scan.ParamsFromConfig(cfg.Scan)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Newf(errors.ErrInvalidConfig, "", "%v", err)
	}

	runID := newRunID()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRunID(ctx, runID)
	ctx, root := tracing.StartSpan(ctx, "scan-run", runID)
	defer func() {
		root.End()
		root.Log()
	}()

	slog.Info("starting scanner",
		"run_id", runID,
		"source", cfg.Corpus.Source,
		"n", cfg.Scan.NgramSize,
		"threshold", cfg.Scan.Threshold,
		"strategy", cfg.Scan.Strategy,
		"mode", cfg.Scan.Mode,
	)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	checker := health.NewChecker()

	var (
		src   loader
		store *corpus.Store
	)
	if cfg.Corpus.Source == "postgres" {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			return errors.Newf(errors.ErrResource, "postgres", "%v", err)
		}
		defer pg.Close()
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pg.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		store = corpus.NewStore(pg)
		src = store
	} else {
		src = corpus.NewLoader(cfg.Corpus)
	}

	observers := scan.MultiObserver{scan.NewLogObserver(), scan.NewMetricsObserver(m)}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ScanEvents)
		defer producer.Close()
		emitter := report.NewEmitter(producer, runID, 0, func() { m.EmitterDropsTotal.Inc() })
		emitter.Start(ctx)
		defer emitter.Close()
		observers = append(observers, emitter)
	}

	var cache *scan.ResultCache
	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			// Degraded, not fatal; the scan runs uncached.
			slog.Warn("redis unavailable, result cache disabled", "error", err)
		} else {
			defer rc.Close()
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := rc.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
			cache = scan.NewCache(rc, cfg.Redis)
		}
	}

	if r := checker.Run(ctx); r.Status != health.StatusUp {
		slog.Warn("dependencies degraded at startup", "status", string(r.Status))
	}

	loadCtx, loadSpan := tracing.StartChildSpan(ctx, "load-corpus")
	var queries, docs *corpus.LoadResult
	err = resilience.WithTimeout(loadCtx, cfg.Corpus.LoadTimeout, "corpus-load", func(ctx context.Context) error {
		var err error
		if queries, err = src.LoadQueries(ctx); err != nil {
			return err
		}
		docs, err = src.LoadDocuments(ctx)
		return err
	})
	if err != nil {
		loadSpan.End()
		return err
	}
	loadSpan.SetAttr("queries", len(queries.Items))
	loadSpan.SetAttr("documents", len(docs.Items))
	loadSpan.End()
	m.CorpusDocs.Set(float64(len(docs.Items)))
	for _, id := range queries.Skipped {
		m.DocsSkippedTotal.WithLabelValues("malformed_query").Inc()
		slog.Warn("query skipped", "id", id)
	}
	for _, id := range docs.Skipped {
		m.DocsSkippedTotal.WithLabelValues("malformed_document").Inc()
		slog.Warn("document skipped", "id", id)
	}

	scanner := scan.New(params, observers)
	runScan := func() (*scan.Summary, error) {
		scanCtx, scanSpan := tracing.StartChildSpan(ctx, "scan-corpus")
		defer scanSpan.End()
		summary, err := scanner.Run(scanCtx, queries.Items, docs.Items)
		if err != nil {
			return nil, err
		}
		summary.SkippedQueries = queries.Skipped
		summary.SkippedDocs = docs.Skipped
		return summary, nil
	}

	var (
		summary *scan.Summary
		cached  bool
	)
	if cache != nil {
		fp := scan.Fingerprint(params, queries.Items, docs.Items)
		summary, cached, err = cache.GetOrCompute(ctx, fp, runScan)
	} else {
		summary, err = runScan()
	}
	if err != nil {
		return err
	}
	if cached {
		m.ResultCacheHits.Inc()
		slog.Info("scan served from result cache")
	} else if cache != nil {
		m.ResultCacheMisses.Inc()
	}

	_, reportSpan := tracing.StartChildSpan(ctx, "report-results")
	for _, r := range summary.Results {
		attrs := []any{
			"query_id", r.QueryID,
			"matched_docs", r.Matched,
		}
		if params.Mode == scan.ModeSpan {
			attrs = append(attrs, "matched_spans", r.Spans)
		}
		if params.TrackMatches {
			attrs = append(attrs, "docs", r.MatchedDocs)
		}
		slog.Info("query result", attrs...)
	}
	slog.Info("scan summary",
		"run_id", runID,
		"docs_scanned", summary.DocsScanned,
		"skipped_docs", len(summary.SkippedDocs),
		"skipped_queries", len(summary.SkippedQueries),
		"elapsed", summary.Elapsed,
		"cached", cached,
	)

	if store != nil && !cached {
		results := make([]corpus.RunResult, len(summary.Results))
		for i, r := range summary.Results {
			results[i] = corpus.RunResult{
				QueryID:      r.QueryID,
				MatchedDocs:  r.Matched,
				MatchedSpans: r.Spans,
			}
		}
		if err := store.SaveResults(ctx, runID, results); err != nil {
			slog.Error("failed to persist results", "error", err)
		}
	}
	reportSpan.End()

	return nil
}

// applyFlags lets command-line flags override the loaded configuration.
func applyFlags(cfg *config.Config, queryPath, searchDir string, n int, threshold float64, strategy, mode string) {
	if queryPath != "" {
		cfg.Corpus.QueryPath = queryPath
	}
	if searchDir != "" {
		cfg.Corpus.SearchDir = searchDir
	}
	if n > 0 {
		cfg.Scan.NgramSize = n
	}
	if threshold >= 0 {
		cfg.Scan.Threshold = threshold
	}
	if strategy != "" {
		cfg.Scan.Strategy = strategy
	}
	if mode != "" {
		cfg.Scan.Mode = mode
	}
}

func newRunID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("run-%d", os.Getpid())
	}
	return hex.EncodeToString(b)
}
