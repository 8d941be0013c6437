package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Summary is a cached summarization result.
type Summary struct {
	Text   string
	Source string
}

// SummaryCache memoizes summaries by a hash of the input text.
type SummaryCache struct {
	lru *LRUCache[string, Summary]
	ttl time.Duration
}

// NewSummaryCache creates a cache holding up to size summaries for ttl.
func NewSummaryCache(size int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{lru: NewLRUCache[string, Summary](size, ttl), ttl: ttl}
}

// Key returns the hex SHA-256 of text.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get looks up the summary of text.
func (c *SummaryCache) Get(text string) (Summary, bool) {
	return c.lru.Get(Key(text))
}

// Put stores the summary of text.
func (c *SummaryCache) Put(text string, s Summary) {
	c.lru.Set(Key(text), s, c.ttl)
}

// Len returns the number of cached summaries.
func (c *SummaryCache) Len() int {
	return c.lru.Size()
}
