package benchmark

import (
	"fmt"
	"testing"

	"github.com/overlap-ml/neardup/internal/match"
	"github.com/overlap-ml/neardup/internal/ngram"
	"github.com/overlap-ml/neardup/internal/token"
)

// benchDoc returns a document with the query planted mid-way when planted
// is true, so matched and unmatched scans can be measured separately.
func benchDoc(query token.Sequence, length int, planted bool) token.Sequence {
	doc := randomTokens(3, length)
	if planted {
		copy(doc[length/2:], query)
	}
	return doc
}

func BenchmarkEngineScan(b *testing.B) {
	query := randomTokens(4, 50)
	for _, family := range []ngram.Strategy{ngram.StrategyContent, ngram.StrategyRolling} {
		for _, docLen := range []int{512, 2048, 8192} {
			for _, planted := range []bool{false, true} {
				label := "miss"
				if planted {
					label = "hit"
				}
				b.Run(fmt.Sprintf("%s_doc%d_%s", family, docLen, label), func(b *testing.B) {
					engine := match.NewEngine(query, 10, 0.6, family)
					doc := benchDoc(query, docLen, planted)
					b.ReportAllocs()
					b.SetBytes(int64(len(doc)) * 4)
					for i := 0; i < b.N; i++ {
						out := engine.Scan(doc)
						_ = out
					}
				})
			}
		}
	}
}

// BenchmarkEngineVsNaive quantifies what the fingerprint filter saves over
// exhaustive verification on documents that do not match.
func BenchmarkEngineVsNaive(b *testing.B) {
	query := randomTokens(5, 50)
	doc := benchDoc(query, 2048, false)

	b.Run("filtered", func(b *testing.B) {
		engine := match.NewEngine(query, 10, 0.6, ngram.StrategyRolling)
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			out := engine.Scan(doc)
			_ = out
		}
	})
	b.Run("naive", func(b *testing.B) {
		naive := match.NewNaive(query, 10, 0.6, ngram.StrategyRolling)
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			out := naive.Scan(doc)
			_ = out
		}
	})
}

func BenchmarkScanSpans(b *testing.B) {
	query := randomTokens(6, 50)
	doc := randomTokens(7, 4096)
	copy(doc[100:], query)
	copy(doc[2000:], query)
	engine := match.NewEngine(query, 10, 0.6, ngram.StrategyRolling)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		out := engine.ScanSpans(doc)
		_ = out
	}
}
