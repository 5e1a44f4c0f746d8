package bench

import (
	"testing"
)

func smallParams() Params {
	p := Defaults()
	p.NumDocs = 24
	p.DocLen = 400
	p.QueryLen = 30
	return p
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(smallParams())
	b := Generate(smallParams())
	if len(a.Docs) != len(b.Docs) {
		t.Fatalf("doc counts differ: %d != %d", len(a.Docs), len(b.Docs))
	}
	for i := range a.Query {
		if a.Query[i] != b.Query[i] {
			t.Fatalf("queries diverge at %d", i)
		}
	}
	for d := range a.Docs {
		for i := range a.Docs[d] {
			if a.Docs[d][i] != b.Docs[d][i] {
				t.Fatalf("doc %d diverges at %d", d, i)
			}
		}
	}
}

func TestGeneratePlantsSpans(t *testing.T) {
	p := smallParams()
	corpus := Generate(p)
	want := (p.NumDocs + p.PlantEvery - 1) / p.PlantEvery
	if corpus.Planted != want {
		t.Errorf("Planted = %d, want %d", corpus.Planted, want)
	}
	if len(corpus.Query) != p.QueryLen {
		t.Errorf("query length = %d, want %d", len(corpus.Query), p.QueryLen)
	}
}

func TestGenerateDifferentSeeds(t *testing.T) {
	p := smallParams()
	a := Generate(p)
	p.Seed = 99
	b := Generate(p)
	same := true
	for i := range a.Query {
		if a.Query[i] != b.Query[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced the same query")
	}
}

func TestHarnessRunVariantsAgree(t *testing.T) {
	report, err := NewHarness(smallParams()).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	content, rolling := report.Results[0], report.Results[1]
	if content.Name != "content" || rolling.Name != "rolling" {
		t.Fatalf("unexpected variant order: %s, %s", content.Name, rolling.Name)
	}
	if content.Matched != rolling.Matched {
		t.Errorf("families disagree: content=%d rolling=%d", content.Matched, rolling.Matched)
	}
	// Half the planted spans are verbatim and must match; the filter
	// should find at least those.
	if content.Matched < report.Planted/2 {
		t.Errorf("Matched = %d, want >= %d verbatim plants", content.Matched, report.Planted/2)
	}
}

func TestHarnessFilterDoesLessWorkThanNaive(t *testing.T) {
	report, err := NewHarness(smallParams()).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	content, naive := report.Results[0], report.Results[2]
	if naive.Name != "naive" {
		t.Fatalf("unexpected variant order: %s", naive.Name)
	}
	if content.Verified >= naive.Verified {
		t.Errorf("filtered engine verified %d spans, baseline %d; filtering saved nothing",
			content.Verified, naive.Verified)
	}
}
