// Package cache keeps recent listing results so repeated commands do not hit
// the object store. The cache is advisory: lookups report a miss instead of
// failing, and writes return an error callers are free to ignore.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/franksops/dsfetch/provider"
	"github.com/franksops/dsfetch/store"
)

// DefaultTTL is the freshness window of a cached listing.
const DefaultTTL = time.Hour

type entry[T any] struct {
	Timestamp float64 `json:"timestamp"`
	Payload   T       `json:"payload"`
}

// ListingCache stores dataset summaries per task and file listings per
// (task, dataset). A nil store yields a cache that always misses.
type ListingCache struct {
	store store.ListingStore
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a ListingCache.
type Option func(*ListingCache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *ListingCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ListingCache) {
		c.now = now
	}
}

// New creates a ListingCache on top of s.
func New(s store.ListingStore, opts ...Option) *ListingCache {
	c := &ListingCache{
		store: s,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DatasetsKey is the cache key for the dataset summaries of a task.
func DatasetsKey(task string) string {
	return task + "/datasets"
}

// FilesKey is the cache key for the file listing of a dataset. Path
// separators in the dataset name are flattened.
func FilesKey(task, dataset string) string {
	return task + "/files/" + strings.ReplaceAll(dataset, "/", "_")
}

// Datasets returns the cached summaries for task if they are still fresh.
func (c *ListingCache) Datasets(task string) ([]provider.DatasetSummary, bool) {
	return get[[]provider.DatasetSummary](c, DatasetsKey(task))
}

// PutDatasets caches the summaries for task.
func (c *ListingCache) PutDatasets(task string, datasets []provider.DatasetSummary) error {
	return put(c, DatasetsKey(task), datasets)
}

// Files returns the cached file listing for a dataset if it is still fresh.
func (c *ListingCache) Files(task, dataset string) ([]provider.FileRecord, bool) {
	return get[[]provider.FileRecord](c, FilesKey(task, dataset))
}

// PutFiles caches the file listing for a dataset.
func (c *ListingCache) PutFiles(task, dataset string, files []provider.FileRecord) error {
	return put(c, FilesKey(task, dataset), files)
}

func (c *ListingCache) timestamp() float64 {
	return float64(c.now().UnixNano()) / float64(time.Second)
}

func get[T any](c *ListingCache, key string) (T, bool) {
	var zero T
	if c == nil || c.store == nil {
		return zero, false
	}

	data, err := c.store.GetListing(key)
	if err != nil {
		if !errors.Is(err, store.ErrListingNotFound) {
			slog.Debug("listing cache read failed", "key", key, "error", err)
		}
		return zero, false
	}

	var e entry[T]
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Debug("listing cache entry unreadable", "key", key, "error", err)
		return zero, false
	}

	if c.timestamp()-e.Timestamp >= c.ttl.Seconds() {
		slog.Debug("listing cache entry expired", "key", key)
		return zero, false
	}
	return e.Payload, true
}

func put[T any](c *ListingCache, key string, payload T) error {
	if c == nil || c.store == nil {
		return errors.New("listing cache disabled")
	}

	data, err := json.Marshal(entry[T]{Timestamp: c.timestamp(), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	return c.store.PutListing(key, data)
}
