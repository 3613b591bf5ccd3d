// Package cache memoizes simulation results by the content of their inputs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSize bounds a memo when no size is configured.
const DefaultSize = 256

// Memo is a bounded, content-addressed table of results. It holds nothing
// that could not be recomputed from the key's inputs; evicting any entry
// only costs a rerun. Safe for concurrent use.
type Memo[V any] struct {
	entries *lru.Cache

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

func New[V any](size int) (*Memo[V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Memo[V]{entries: c}, nil
}

func (m *Memo[V]) Get(key string) (V, bool) {
	v, ok := m.entries.Get(key)

	m.mu.Lock()
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	m.mu.Unlock()

	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

func (m *Memo[V]) Add(key string, v V) {
	m.entries.Add(key, v)
}

func (m *Memo[V]) Len() int { return m.entries.Len() }

func (m *Memo[V]) Purge() { m.entries.Purge() }

// Stats reports lookups served from and missed by the memo.
func (m *Memo[V]) Stats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Key hashes the JSON encoding of parts into a hex SHA-256 digest. Parts
// must be JSON encodable; NaN and Inf are not.
func Key(parts ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for i, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("cache key part %d: %w", i, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
