package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"context"

	"github.com/klauspost/compress/gzip"
	"github.com/overlap-ml/neardup/internal/token"
	"github.com/overlap-ml/neardup/pkg/config"
	"github.com/overlap-ml/neardup/pkg/errors"
)

// record is one JSONL line. ID is optional; records without one are
// identified as file:line.
type record struct {
	ID       string  `json:"id"`
	TokenIDs []int64 `json:"token_ids"`
}

// Loader reads queries and documents from JSONL files.
type Loader struct {
	cfg    config.CorpusConfig
	logger *slog.Logger
}

func NewLoader(cfg config.CorpusConfig) *Loader {
	return &Loader{
		cfg:    cfg,
		logger: slog.Default().With("component", "corpus-loader"),
	}
}

// LoadQueries reads the configured query file. It fails with ErrNoQueries
// if no usable query survives.
func (l *Loader) LoadQueries(ctx context.Context) (*LoadResult, error) {
	result := &LoadResult{}
	if err := l.loadFile(ctx, l.cfg.QueryPath, result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, errors.Newf(errors.ErrNoQueries, l.cfg.QueryPath, "no usable queries loaded")
	}
	l.logger.Info("queries loaded", "path", l.cfg.QueryPath, "queries", len(result.Items), "skipped", len(result.Skipped))
	return result, nil
}

// LoadDocuments walks the configured search directory recursively, reading
// every .jsonl / .jsonl.gz file whose numeric file index falls inside the
// configured range. Unreadable files are skipped with a warning; the load
// fails with ErrNoCorpus only when nothing usable remains.
func (l *Loader) LoadDocuments(ctx context.Context) (*LoadResult, error) {
	result := &LoadResult{}
	var paths []string
	err := filepath.WalkDir(l.cfg.SearchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isCorpusFile(path) {
			return nil
		}
		if !l.inFileRange(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus directory %s: %w", l.cfg.SearchDir, err)
	}
	l.logger.Info("corpus files selected", "dir", l.cfg.SearchDir, "files", len(paths))

	for _, path := range paths {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := l.loadFile(ctx, path, result); err != nil {
			// One unreadable file must not sink the run.
			l.logger.Warn("skipping unreadable corpus file", "path", path, "error", err)
			result.Skipped = append(result.Skipped, path)
		}
	}
	if len(result.Items) == 0 {
		return nil, errors.Newf(errors.ErrNoCorpus, l.cfg.SearchDir, "no usable documents in %d files", len(paths))
	}
	l.logger.Info("documents loaded", "documents", len(result.Items), "skipped", len(result.Skipped))
	return result, nil
}

func (l *Loader) loadFile(ctx context.Context, path string, result *LoadResult) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", errors.ErrResource, path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: decompressing %s: %v", errors.ErrResource, path, err)
		}
		defer gz.Close()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			id := fmt.Sprintf("%s:%d", path, lineNo)
			l.logger.Warn("skipping unparsable record", "id", id, "error", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("%s:%d", path, lineNo)
		}
		seq, err := token.FromInts(id, rec.TokenIDs)
		if err != nil {
			l.logger.Warn("skipping malformed record", "id", id, "error", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.Items = append(result.Items, Item{ID: id, Tokens: seq})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading %s: %v", errors.ErrResource, path, err)
	}
	return nil
}

func isCorpusFile(path string) bool {
	return strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".jsonl.gz")
}

// inFileRange applies the numeric file-index filter to names of the form
// <prefix>-<idx>.jsonl; files that do not carry an index are always
// included. The bounds are expressed in thousands of the embedded index.
func (l *Loader) inFileRange(path string) bool {
	base := filepath.Base(path)
	dash := strings.LastIndex(base, "-")
	if dash < 0 {
		return true
	}
	idxPart := base[dash+1:]
	if dot := strings.Index(idxPart, "."); dot >= 0 {
		idxPart = idxPart[:dot]
	}
	idx, err := strconv.Atoi(idxPart)
	if err != nil {
		return true
	}
	return l.cfg.StartFileIdx*1000 <= idx && idx <= l.cfg.EndFileIdx*1000
}
