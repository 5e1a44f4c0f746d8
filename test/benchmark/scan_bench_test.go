package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/overlap-ml/neardup/internal/corpus"
	"github.com/overlap-ml/neardup/internal/ngram"
	"github.com/overlap-ml/neardup/internal/scan"
)

// BenchmarkCorpusScan measures whole-corpus throughput across worker
// counts: one query against 200 documents of 2048 tokens.
func BenchmarkCorpusScan(b *testing.B) {
	queries := []corpus.Item{{ID: "q1", Tokens: randomTokens(8, 50)}}
	docs := make([]corpus.Item, 200)
	for d := range docs {
		docs[d] = corpus.Item{
			ID:     fmt.Sprintf("d%03d", d),
			Tokens: randomTokens(int64(100+d), 2048),
		}
	}

	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			scanner := scan.New(scan.Params{
				N:         10,
				Threshold: 0.6,
				Strategy:  ngram.StrategyRolling,
				Mode:      scan.ModeDocument,
				Workers:   workers,
			}, nil)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := scanner.Run(context.Background(), queries, docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
