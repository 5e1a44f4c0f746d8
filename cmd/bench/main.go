// Command bench measures matcher throughput over a synthetic corpus.
//
// It generates a deterministic random corpus with planted near-duplicate
// spans, runs the content-hash engine, the rolling-hash engine, and the
// unfiltered naive baseline over it, and logs per-variant throughput. The
// variants must agree on which documents match; a disagreement is a bug
// and exits non-zero.
//
// Usage:
//
//	go run ./cmd/bench [-docs 200] [-n 10] [-threshold 0.6] [-seed 42]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/overlap-ml/neardup/internal/bench"
	"github.com/overlap-ml/neardup/pkg/logger"
)

func main() {
	p := bench.Defaults()
	flag.Int64Var(&p.Seed, "seed", p.Seed, "corpus generation seed")
	flag.IntVar(&p.NumDocs, "docs", p.NumDocs, "number of documents")
	flag.IntVar(&p.DocLen, "doc-len", p.DocLen, "tokens per document")
	flag.IntVar(&p.QueryLen, "query-len", p.QueryLen, "tokens per query")
	flag.IntVar(&p.NgramSize, "n", p.NgramSize, "n-gram size")
	flag.Float64Var(&p.Threshold, "threshold", p.Threshold, "similarity threshold in [0,1]")
	flag.IntVar(&p.Corrupted, "corrupted", p.Corrupted, "token substitutions per corrupted planted span")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")

	report, err := bench.NewHarness(p).Run()
	if err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}

	baseline := report.Results[len(report.Results)-1]
	for _, r := range report.Results {
		speedup := 0.0
		if baseline.DocsPerSec > 0 {
			speedup = r.DocsPerSec / baseline.DocsPerSec
		}
		slog.Info("benchmark result",
			"variant", r.Name,
			"matched", r.Matched,
			"planted", report.Planted,
			"verified", r.Verified,
			"elapsed", r.Elapsed,
			"docs_per_sec", fmt.Sprintf("%.1f", r.DocsPerSec),
			"speedup_vs_naive", fmt.Sprintf("%.2fx", speedup),
		)
	}
}
