// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pso

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache errors.
var (
	// ErrNilFactory is returned when building a pipeline without a factory.
	ErrNilFactory = errors.New("pso: pipeline factory is nil")

	// ErrNilState is returned when building a pipeline from a nil state.
	ErrNilState = errors.New("pso: state is nil")
)

// Factory builds and destroys native render pipelines.
type Factory interface {
	CreatePipeline(s *State) (hal.RenderPipeline, error)
	DestroyPipeline(p hal.RenderPipeline)
}

// DefaultCacheSize bounds the number of native pipelines kept alive.
const DefaultCacheSize = 512

// Cache maps state hashes to native pipelines.
//
// Pipeline creation is expensive, so compile workers share one cache. The
// lookup is double-checked: a read under RLock, then a second look under
// the write lock before building. Evicted pipelines are destroyed through
// the factory.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	factory Factory
	lru     *lru.Cache[uint64, hal.RenderPipeline]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache that keeps at most size pipelines.
func NewCache(factory Factory, size int) (*Cache, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &Cache{factory: factory}
	l, err := lru.NewWithEvict[uint64, hal.RenderPipeline](size, func(_ uint64, p hal.RenderPipeline) {
		factory.DestroyPipeline(p)
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// GetOrCreate returns the native pipeline for s, building it on a miss, and
// stores it in s.Native.
func (c *Cache) GetOrCreate(s *State) (hal.RenderPipeline, error) {
	if s == nil {
		return nil, ErrNilState
	}
	key := s.Hash()

	c.mu.RLock()
	if p, ok := c.lru.Get(key); ok {
		c.mu.RUnlock()
		c.hits.Add(1)
		s.Native = p
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		s.Native = p
		return p, nil
	}

	p, err := c.factory.CreatePipeline(s)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, p)
	c.misses.Add(1)
	s.Native = p
	return p, nil
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached pipelines.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// DestroyAll destroys every cached pipeline and resets the counters.
func (c *Cache) DestroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}
