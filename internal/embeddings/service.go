package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long cached embeddings stay valid. The cache key
// includes a content hash, so an edit invalidates the entry regardless of TTL.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Provider produces embeddings from text. A failed call returns an error;
// the Service converts provider failure into a nil vector so callers can
// degrade to rule-only retrieval.
type Provider interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Model() string
}

// Cache stores vectors keyed by subject identity and content hash.
type Cache interface {
	Get(ctx context.Context, key string) (Vector, bool, error)
	Set(ctx context.Context, key string, vec Vector, ttl time.Duration) error
}

// Service wraps a Provider with a cache. Construct once per process and
// inject into components that need embeddings.
type Service struct {
	provider Provider
	cache    Cache
	ttl      time.Duration

	// lastCacheHit records whether the most recent GetEmbedding call was
	// served from cache, for provenance instrumentation.
	lastCacheHit bool
}

// NewService creates an embedding service. cache may be nil, in which case
// every call goes to the provider.
func NewService(provider Provider, cache Cache) *Service {
	return &Service{provider: provider, cache: cache, ttl: DefaultCacheTTL}
}

// CacheKey builds the cache key for a subject (user email or job hash) and
// the text being embedded. Content is hashed so profile or posting edits
// invalidate the cached vector.
func CacheKey(subjectID, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", subjectID, hex.EncodeToString(sum[:8]))
}

// GetEmbedding returns the vector for the given subject and text. On
// provider failure it returns nil with no error: missing semantic signal is
// a degradation, not a run failure.
func (s *Service) GetEmbedding(ctx context.Context, subjectID, text string) Vector {
	s.lastCacheHit = false
	key := CacheKey(subjectID, text)

	if s.cache != nil {
		if vec, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			s.lastCacheHit = true
			return vec
		}
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		return nil
	}

	if s.cache != nil {
		// Best effort; a cache write failure must not fail the lookup.
		_ = s.cache.Set(ctx, key, vec, s.ttl)
	}
	return vec
}

// LastCacheHit reports whether the most recent GetEmbedding was a cache hit.
func (s *Service) LastCacheHit() bool {
	return s.lastCacheHit
}

// Model returns the provider's model identifier.
func (s *Service) Model() string {
	return s.provider.Model()
}

// RedisCache implements Cache on a redis client, storing vectors as JSON.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Get retrieves a cached vector. A miss returns (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, key string) (Vector, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var vec Vector
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("decode cached vector %s: %w", key, err)
	}
	return vec, true, nil
}

// Set stores a vector with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, vec Vector, ttl time.Duration) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode vector %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
