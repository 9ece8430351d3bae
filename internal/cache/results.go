// Package cache keeps recent conversion results in memory so the watcher
// and MCP server do not re-parse unchanged documents.
package cache

import (
	"errors"
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/flowmark/internal/pipeline"
)

// ErrDisabled is returned by New when maxEntries is zero.
var ErrDisabled = errors.New("result cache disabled")

// Results is a bounded, concurrency-safe result cache.
type Results struct {
	store otter.Cache[string, *pipeline.Result]
}

// New creates a cache holding at most maxEntries results.
func New(maxEntries int) (*Results, error) {
	if maxEntries == 0 {
		return nil, ErrDisabled
	}
	if maxEntries < 0 {
		return nil, fmt.Errorf("invalid cache capacity %d", maxEntries)
	}

	store, err := otter.MustBuilder[string, *pipeline.Result](maxEntries).
		CollectStats().
		Build()
	if err != nil {
		return nil, err
	}
	return &Results{store: store}, nil
}

// Get returns the cached result for key.
func (r *Results) Get(key string) (*pipeline.Result, bool) {
	return r.store.Get(key)
}

// Set stores result under key.
func (r *Results) Set(key string, result *pipeline.Result) {
	r.store.Set(key, result)
}

// Stats reports hit and miss counters.
func (r *Results) Stats() (hits, misses int64) {
	s := r.store.Stats()
	return s.Hits(), s.Misses()
}

// Len returns the number of cached results.
func (r *Results) Len() int {
	return r.store.Size()
}

// Close stops the cache's background work.
func (r *Results) Close() {
	r.store.Close()
}

var _ pipeline.ResultCache = (*Results)(nil)
