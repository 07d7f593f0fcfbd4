// Package cache implements a generic write-through key-value cache with lazy
// full load. Reads are served from memory once the initial load resolves;
// writes reach the provider first and only land in memory after the provider
// confirms them, so the cache never diverges from persisted truth.
package cache

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrNotLoaded is returned by accessors after the initial (or most recent)
// full load failed.
var ErrNotLoaded = errors.New("cache: not loaded")

// Provider is the backing store a Cache mirrors.
type Provider[K comparable, V any] interface {
	// Get fetches one value; the bool reports presence. A non-nil error is a
	// provider failure, distinct from absence.
	Get(ctx context.Context, key K) (V, bool, error)

	// GetAll fetches the full data set. The bool is false when the provider
	// could not produce a data set at all (load failure sentinel).
	GetAll(ctx context.Context) (map[K]V, bool, error)

	Insert(ctx context.Context, key K, value V) error
	Update(ctx context.Context, key K, value V) error
	Remove(ctx context.Context, key K) error
}

type state int

const (
	stateUnloaded state = iota
	stateLoading
	stateLoaded
	stateFailed
)

// Cache mirrors a Provider's data set in memory. The zero value is unusable;
// construct with New, which starts the initial full load immediately.
type Cache[K comparable, V any] struct {
	provider Provider[K, V]

	mu       sync.RWMutex
	entries  map[K]V
	state    state
	loadDone chan struct{} // closed when the in-flight load resolves
}

func New[K comparable, V any](provider Provider[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		provider: provider,
		entries:  make(map[K]V),
	}
	c.mu.Lock()
	c.startLoad()
	c.mu.Unlock()
	return c
}

// startLoad begins a full load. Caller must hold mu.
func (c *Cache[K, V]) startLoad() {
	c.state = stateLoading
	done := make(chan struct{})
	c.loadDone = done

	go func() {
		defer close(done)
		all, ok, err := c.provider.GetAll(context.Background())

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil || !ok {
			if err != nil {
				log.Printf("cache: full load failed: %v", err)
			}
			c.state = stateFailed
			return
		}
		for k, v := range all {
			c.entries[k] = v
		}
		c.state = stateLoaded
	}()
}

// Reload discards the cache and starts a fresh full load. It reports false
// without doing anything while a load is already in flight.
func (c *Cache[K, V]) Reload() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateLoading {
		return false
	}
	c.state = stateUnloaded
	c.entries = make(map[K]V)
	c.startLoad()
	return true
}

// IsLoaded reports whether the cache currently holds a loaded data set.
func (c *Cache[K, V]) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == stateLoaded
}

// awaitLoad blocks until the in-flight load resolves, then returns
// ErrNotLoaded if it failed.
func (c *Cache[K, V]) awaitLoad(ctx context.Context) error {
	for {
		c.mu.RLock()
		st, done := c.state, c.loadDone
		c.mu.RUnlock()

		switch st {
		case stateLoaded:
			return nil
		case stateFailed:
			return ErrNotLoaded
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Get returns the cached value for key; the bool reports presence.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if err := c.awaitLoad(ctx); err != nil {
		return zero, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

// Contains reports whether key is cached.
func (c *Cache[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len(ctx context.Context) (int, error) {
	if err := c.awaitLoad(ctx); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Snapshot returns a copy of the cached map.
func (c *Cache[K, V]) Snapshot(ctx context.Context) (map[K]V, error) {
	if err := c.awaitLoad(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[K]V, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out, nil
}

// Values returns a copy of the cached values, in no particular order.
func (c *Cache[K, V]) Values(ctx context.Context) ([]V, error) {
	if err := c.awaitLoad(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.entries))
	for _, v := range c.entries {
		out = append(out, v)
	}
	return out, nil
}

// GetAndRefresh re-fetches one key from the provider and republishes it.
// Provider failures are logged and reported as absence; single-key refreshes
// are unordered relative to each other.
func (c *Cache[K, V]) GetAndRefresh(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if err := c.awaitLoad(ctx); err != nil {
		return zero, false, err
	}
	v, ok, err := c.provider.Get(ctx, key)
	if err != nil {
		log.Printf("cache: refresh failed: %v", err)
		return zero, false, nil
	}
	if ok {
		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
	}
	return v, ok, nil
}

// Put writes through to the provider (update when cached, insert otherwise)
// and commits to memory only on provider success. It reports whether the
// write was committed; provider failures are logged, never propagated.
func (c *Cache[K, V]) Put(ctx context.Context, key K, value V) (bool, error) {
	if err := c.awaitLoad(ctx); err != nil {
		return false, err
	}

	c.mu.RLock()
	_, cached := c.entries[key]
	c.mu.RUnlock()

	var err error
	if cached {
		err = c.provider.Update(ctx, key, value)
	} else {
		err = c.provider.Insert(ctx, key, value)
	}
	if err != nil {
		log.Printf("cache: put declined by provider: %v", err)
		return false, nil
	}

	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
	return true, nil
}

// Remove deletes key from the provider and then evicts it locally. It reports
// false when key was not cached or the provider declined the removal.
func (c *Cache[K, V]) Remove(ctx context.Context, key K) (bool, error) {
	if err := c.awaitLoad(ctx); err != nil {
		return false, err
	}

	c.mu.RLock()
	_, cached := c.entries[key]
	c.mu.RUnlock()
	if !cached {
		return false, nil
	}

	if err := c.provider.Remove(ctx, key); err != nil {
		log.Printf("cache: remove declined by provider: %v", err)
		return false, nil
	}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return true, nil
}
