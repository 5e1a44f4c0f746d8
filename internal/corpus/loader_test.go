package corpus

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/overlap-ml/neardup/pkg/config"
	"github.com/overlap-ml/neardup/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeGzipFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func testLoader(queryPath, searchDir string) *Loader {
	return NewLoader(config.CorpusConfig{
		QueryPath:    queryPath,
		SearchDir:    searchDir,
		StartFileIdx: 0,
		EndFileIdx:   142,
		LoadTimeout:  time.Minute,
	})
}

func TestLoadQueries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.jsonl")
	writeFile(t, path, `{"id":"q1","token_ids":[1,2,3]}
{"id":"q2","token_ids":[4,5,6,7]}
`)
	result, err := testLoader(path, dir).LoadQueries(context.Background())
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("loaded %d queries, want 2", len(result.Items))
	}
	if result.Items[0].ID != "q1" || len(result.Items[0].Tokens) != 3 {
		t.Errorf("unexpected first query: %+v", result.Items[0])
	}
}

func TestLoadQueriesSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.jsonl")
	writeFile(t, path, `{"id":"good","token_ids":[1,2,3]}
not json at all
{"id":"negative","token_ids":[-1,2]}

{"token_ids":[9,9]}
`)
	result, err := testLoader(path, dir).LoadQueries(context.Background())
	if err != nil {
		t.Fatalf("LoadQueries: %v", err)
	}
	// good + the id-less record; the unparsable and negative-id lines are
	// skipped, the blank line ignored.
	if len(result.Items) != 2 {
		t.Fatalf("loaded %d queries, want 2: %+v", len(result.Items), result.Items)
	}
	if len(result.Skipped) != 2 {
		t.Errorf("skipped %d records, want 2: %v", len(result.Skipped), result.Skipped)
	}
	if result.Items[1].ID == "" {
		t.Error("id-less record did not get a synthetic identifier")
	}
}

func TestLoadQueriesEmptyIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.jsonl")
	writeFile(t, path, "not json\n")
	_, err := testLoader(path, dir).LoadQueries(context.Background())
	if !stderrors.Is(err, errors.ErrNoQueries) {
		t.Fatalf("err = %v, want ErrNoQueries", err)
	}
	if errors.ExitCode(err) != 3 {
		t.Errorf("ExitCode = %d, want 3", errors.ExitCode(err))
	}
}

func TestLoadDocumentsPlainAndGzip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jsonl"), `{"id":"d1","token_ids":[1,2,3]}`+"\n")
	writeGzipFile(t, filepath.Join(dir, "b.jsonl.gz"), `{"id":"d2","token_ids":[4,5,6]}`+"\n")
	writeFile(t, filepath.Join(dir, "ignored.txt"), "not a corpus file\n")

	result, err := testLoader("", dir).LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("loaded %d documents, want 2: %+v", len(result.Items), result.Items)
	}
}

func TestLoadDocumentsRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "shard0")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(sub, "a.jsonl"), `{"id":"d1","token_ids":[1]}`+"\n")
	result, err := testLoader("", dir).LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("loaded %d documents, want 1", len(result.Items))
	}
}

func TestLoadDocumentsEmptyDirIsFatal(t *testing.T) {
	dir := t.TempDir()
	_, err := testLoader("", dir).LoadDocuments(context.Background())
	if !stderrors.Is(err, errors.ErrNoCorpus) {
		t.Fatalf("err = %v, want ErrNoCorpus", err)
	}
}

func TestLoadDocumentsFileRangeFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "chunk-0.jsonl"), `{"id":"in-low","token_ids":[1]}`+"\n")
	writeFile(t, filepath.Join(dir, "chunk-2000.jsonl"), `{"id":"in-high","token_ids":[2]}`+"\n")
	writeFile(t, filepath.Join(dir, "chunk-2001.jsonl"), `{"id":"out","token_ids":[3]}`+"\n")
	writeFile(t, filepath.Join(dir, "noindex.jsonl"), `{"id":"always","token_ids":[4]}`+"\n")

	loader := NewLoader(config.CorpusConfig{
		SearchDir:    dir,
		StartFileIdx: 0,
		EndFileIdx:   2,
	})
	result, err := loader.LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	got := make(map[string]bool, len(result.Items))
	for _, item := range result.Items {
		got[item.ID] = true
	}
	for _, want := range []string{"in-low", "in-high", "always"} {
		if !got[want] {
			t.Errorf("document %s missing from range-filtered load", want)
		}
	}
	if got["out"] {
		t.Error("document beyond EndFileIdx*1000 was loaded")
	}
}

func TestLoadDocumentsSkipsCorruptGzip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.jsonl"), `{"id":"d1","token_ids":[1]}`+"\n")
	writeFile(t, filepath.Join(dir, "bad.jsonl.gz"), "this is not gzip data")

	result, err := testLoader("", dir).LoadDocuments(context.Background())
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("loaded %d documents, want 1", len(result.Items))
	}
	if len(result.Skipped) != 1 {
		t.Errorf("skipped %d files, want 1: %v", len(result.Skipped), result.Skipped)
	}
}

func TestLoadDocumentsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jsonl"), `{"id":"d1","token_ids":[1]}`+"\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testLoader("", dir).LoadDocuments(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
