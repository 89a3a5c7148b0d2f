package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mrmushfiq/llm0-observability-gateway/internal/shared/redis"
)

// Store is the key/value backend of the response cache
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry is a captured upstream response
type Entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Cache is an exact-match response cache scoped per credential
type Cache struct {
	store Store
}

// New creates a new cache instance
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Key derives a deterministic cache key for one call
func Key(credentialDigest, method, url string, body []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(credentialDigest), []byte(method), []byte(url), body} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return "cache:exact:" + hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response. A miss returns (nil, false, nil).
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	val, err := c.store.Get(ctx, key)
	if errors.Is(err, redis.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to deserialize cached response: %w", err)
	}
	return &entry, true, nil
}

// Set stores a response in cache. A non-positive ttl stores nothing.
func (c *Cache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize response: %w", err)
	}

	return c.store.Set(ctx, key, data, ttl)
}
