// Package hom: LRU memoization of fully enumerated result sets.
package hom

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/amalgamlab/amalgam/model"
)

// DefaultCacheSize is the entry capacity used by NewCache(0).
const DefaultCacheSize = 1024

// Cache memoizes complete Find results keyed by canonical instance keys and
// constraint fingerprints. Safe for concurrent use (the underlying LRU is
// mutex-guarded). Hom values are immutable, so entries are shared, never
// copied.
type Cache struct {
	lru *lru.Cache[string, []Hom]
}

// NewCache returns a cache holding up to size enumerations; size <= 0 uses
// DefaultCacheSize.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[string, []Hom](size)
	if err != nil {
		return nil, err
	}

	return &Cache{lru: l}, nil
}

// Len reports the number of memoized enumerations.
func (c *Cache) Len() int { return c.lru.Len() }

func (c *Cache) get(key string) ([]Hom, bool) { return c.lru.Get(key) }

func (c *Cache) put(key string, homs []Hom) { c.lru.Add(key, homs) }

// cacheKey derives the memo key for a call. A constraint without a Name has
// unkeyable semantics, so such calls report cacheable == false.
func cacheKey(src, dst model.Instance, cs []Constraint) (string, bool) {
	var b strings.Builder
	b.WriteString(src.Key())
	b.WriteString("\x1f")
	b.WriteString(dst.Key())
	for _, c := range cs {
		if c.Name == "" {
			return "", false
		}
		b.WriteString("\x1f" + c.Name)
	}

	return b.String(), true
}
