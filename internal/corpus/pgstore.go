package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/overlap-ml/neardup/internal/token"
	"github.com/overlap-ml/neardup/pkg/errors"
	"github.com/overlap-ml/neardup/pkg/postgres"
	"github.com/overlap-ml/neardup/pkg/resilience"
)

// RunResult is the per-query outcome persisted after a scan.
type RunResult struct {
	QueryID      string
	MatchedDocs  int64
	MatchedSpans int64
}

// Store loads queries and documents from Postgres and persists per-run
// results. Reads are retried; transient database hiccups should not abort
// a long scan before it has even started.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewStore(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "corpus-store"),
	}
}

// LoadQueries reads all queries from the queries table.
func (s *Store) LoadQueries(ctx context.Context) (*LoadResult, error) {
	result, err := s.loadItems(ctx, `SELECT id, token_ids FROM queries ORDER BY id`)
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, errors.Newf(errors.ErrNoQueries, "queries", "queries table is empty or fully malformed")
	}
	return result, nil
}

// LoadDocuments reads all documents from the documents table.
func (s *Store) LoadDocuments(ctx context.Context) (*LoadResult, error) {
	result, err := s.loadItems(ctx, `SELECT id, token_ids FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, errors.Newf(errors.ErrNoCorpus, "documents", "documents table is empty or fully malformed")
	}
	return result, nil
}

func (s *Store) loadItems(ctx context.Context, query string) (*LoadResult, error) {
	result := &LoadResult{}
	err := resilience.Retry(ctx, "corpus-load", resilience.RetryConfig{}, func() error {
		result.Items = result.Items[:0]
		result.Skipped = result.Skipped[:0]
		rows, err := s.client.DB.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("querying corpus rows: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			var ids pq.Int64Array
			if err := rows.Scan(&id, &ids); err != nil {
				return fmt.Errorf("scanning corpus row: %w", err)
			}
			seq, err := token.FromInts(id, ids)
			if err != nil {
				s.logger.Warn("skipping malformed row", "id", id, "error", err)
				result.Skipped = append(result.Skipped, id)
				continue
			}
			result.Items = append(result.Items, Item{ID: id, Tokens: seq})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SaveResults writes the per-query counts of one run transactionally.
func (s *Store) SaveResults(ctx context.Context, runID string, results []RunResult) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO scan_results (run_id, query_id, matched_docs, matched_spans, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (run_id, query_id) DO UPDATE
			SET matched_docs = EXCLUDED.matched_docs,
			    matched_spans = EXCLUDED.matched_spans`)
		if err != nil {
			return fmt.Errorf("preparing results insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range results {
			if _, err := stmt.ExecContext(ctx, runID, r.QueryID, r.MatchedDocs, r.MatchedSpans); err != nil {
				return fmt.Errorf("inserting result for query %s: %w", r.QueryID, err)
			}
		}
		s.logger.Info("scan results persisted", "run_id", runID, "queries", len(results))
		return nil
	})
}
