package scan

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/overlap-ml/neardup/internal/corpus"
	"github.com/overlap-ml/neardup/pkg/config"
	pkgredis "github.com/overlap-ml/neardup/pkg/redis"
)

const keyPrefix = "neardup:"

// ResultCache stores whole-run summaries in Redis, keyed by a fingerprint
// of the scan parameters and the exact inputs. Scanning is deterministic,
// so an identical (params, queries, corpus) triple can reuse a previous
// run's counts outright.
type ResultCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func NewCache(client *pkgredis.Client, cfg config.RedisConfig) *ResultCache {
	return &ResultCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "result-cache"),
	}
}

// GetOrCompute returns the cached Summary for the fingerprint, or runs
// compute and stores its result. Concurrent callers with the same
// fingerprint share one computation.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	fingerprint string,
	compute func() (*Summary, error),
) (*Summary, bool, error) {
	key := keyPrefix + fingerprint
	if summary, ok := c.get(ctx, key); ok {
		return summary, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if summary, ok := c.get(ctx, key); ok {
			return summary, nil
		}
		summary, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, summary)
		return summary, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Summary), false, nil
}

func (c *ResultCache) get(ctx context.Context, key string) (*Summary, bool) {
	data, err := c.client.GetBytes(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &summary, true
}

func (c *ResultCache) set(ctx context.Context, key string, summary *Summary) {
	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate removes all cached summaries.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("result cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cache hit and miss counts.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Fingerprint hashes the scan parameters and every input item (identifier
// and token content) into a stable cache key. Any change to n, threshold,
// strategy, mode, a query, or a document produces a different key.
func Fingerprint(params Params, queries, docs []corpus.Item) string {
	h := sha256.New()
	fmt.Fprintf(h, "n=%d;t=%g;s=%s;m=%s;tm=%t;",
		params.N, params.Threshold, params.Strategy.Resolve(params.N), params.Mode, params.TrackMatches)
	var buf [4]byte
	writeItems := func(items []corpus.Item) {
		for _, item := range items {
			h.Write([]byte(item.ID))
			h.Write([]byte{0})
			for _, tok := range item.Tokens {
				binary.LittleEndian.PutUint32(buf[:], tok)
				h.Write(buf[:])
			}
			h.Write([]byte{0xff})
		}
	}
	writeItems(queries)
	h.Write([]byte("|"))
	writeItems(docs)
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}
