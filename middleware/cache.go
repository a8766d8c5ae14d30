package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aschepis/chatkit/llm"
)

const (
	cacheKeyPrefix = "chatkit:llm:"
	// DefaultCacheTTL is how long cached responses live.
	DefaultCacheTTL = time.Hour

	scratchCacheHit = "cache.hit"
	scratchCacheKey = "cache.key"
)

// Store is the cache backend boundary. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, content string, ttl time.Duration) error
}

// Cache serves repeated identical requests from a Store. Requests carrying
// tools are never cached: tool results depend on the outside world. Only
// plain text responses are stored.
type Cache struct {
	Nop
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache creates the cache middleware. A non-positive ttl uses the default.
func NewCache(logger zerolog.Logger, store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "llmCache").Logger(),
	}
}

func (c *Cache) Name() string { return "cache" }

// cacheKey derives a deterministic key from the model and messages.
func cacheKey(req *llm.Request) (string, error) {
	msgs := make([]map[string]interface{}, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]interface{}{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}
	payload, err := json.Marshal(map[string]interface{}{
		"model":    req.Model,
		"messages": msgs,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])[:16], nil
}

// TransformParams records either a hit (for the caller to short-circuit) or
// the key to store under after the call.
func (c *Cache) TransformParams(ctx context.Context, p *Params) error {
	if len(p.Request.Tools) > 0 {
		return nil
	}
	key, err := cacheKey(p.Request)
	if err != nil {
		return err
	}
	content, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		c.logger.Debug().Str("key", key).Msg("Cache hit")
		p.Set(scratchCacheHit, content)
		return nil
	}
	p.Set(scratchCacheKey, key)
	return nil
}

// AfterGenerate stores plain text responses under the key recorded at
// transform time. A hit never re-stores: no key was recorded.
func (c *Cache) AfterGenerate(ctx context.Context, p *Params, res *Result) error {
	p.Pop(scratchCacheHit)
	v, ok := p.Pop(scratchCacheKey)
	if !ok {
		return nil
	}
	key, ok := v.(string)
	if !ok || res.Content == "" || len(res.ToolCalls) > 0 {
		return nil
	}
	if err := c.store.Set(ctx, key, res.Content, c.ttl); err != nil {
		return err
	}
	c.logger.Debug().Str("key", key).Msg("Cached response")
	return nil
}

// CachedContent reports whether an earlier TransformParams found a cache
// hit for these params. The caller uses it to skip the provider call.
func CachedContent(p *Params) (string, bool) {
	if v, ok := p.Get(scratchCacheHit); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// MemoryStore is an in-process Store with TTL expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	content   string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.content, true, nil
}

// Set implements Store.Set.
func (s *MemoryStore) Set(ctx context.Context, key, content string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{content: content, expiresAt: s.now().Add(ttl)}
	return nil
}

var _ Store = (*MemoryStore)(nil)
