// Package redis caches conversation lookups in front of the primary repository.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/repositories"
	"automatonbot/internal/metrics"
)

// CachedConversationRepository is a read-through cache for FindByID.
// Writes go to the wrapped repository first; the cached entry is evicted after
// the surrounding transaction commits.
// Redis failures are logged and never fail a request.
type CachedConversationRepository struct {
	next    repositories.ConversationRepository
	client  *backend.Client
	prefix  string
	ttl     time.Duration
	metrics *metrics.Collector
	logger  *slog.Logger
}

type Option func(*CachedConversationRepository)

// WithTTL sets the expiration for cached conversations.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedConversationRepository) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *CachedConversationRepository) {
		c.prefix = prefix
	}
}

// WithMetrics records hits and misses.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *CachedConversationRepository) {
		c.metrics = collector
	}
}

// NewClient parses a redis:// URL and checks the server is reachable.
func NewClient(ctx context.Context, redisURL string) (*backend.Client, error) {
	opts, err := backend.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := backend.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewConversationCache wraps next with a Redis cache.
func NewConversationCache(next repositories.ConversationRepository, client *backend.Client, logger *slog.Logger, opts ...Option) *CachedConversationRepository {
	c := &CachedConversationRepository{
		next:   next,
		client: client,
		prefix: "automatonbot:conversation:",
		ttl:    10 * time.Minute,
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Owner is part of the key so a guessed id never reads another user's entry
func (c *CachedConversationRepository) key(id, ownerID string) string {
	return c.prefix + ownerID + ":" + id
}

// genKey changes on every invalidation; fills watch it so a read that raced a write is dropped
func (c *CachedConversationRepository) genKey(id, ownerID string) string {
	return c.key(id, ownerID) + ":gen"
}

// FindByID serves from Redis when possible and fills the cache on a miss
func (c *CachedConversationRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Conversation, error) {
	val, err := c.client.Get(ctx, c.key(id, ownerID)).Bytes()
	switch {
	case err == nil:
		var conv models.Conversation
		if jsonErr := json.Unmarshal(val, &conv); jsonErr == nil {
			c.metrics.IncCacheHit()
			return &conv, nil
		} else {
			c.logger.Warn("discarding unreadable cache entry", "conversation_id", id, "error", jsonErr)
		}
	case errors.Is(err, backend.Nil):
		// miss
	default:
		c.logger.Warn("cache read failed", "conversation_id", id, "error", err)
	}
	c.metrics.IncCacheMiss()

	var (
		conv    *models.Conversation
		loadErr error
		loaded  bool
	)
	err = c.client.Watch(ctx, func(tx *backend.Tx) error {
		conv, loadErr = c.next.FindByID(ctx, id, ownerID)
		loaded = true
		if loadErr != nil {
			return nil
		}

		data, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("marshal conversation: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, c.key(id, ownerID), data, c.ttl)
			return nil
		})
		return err
	}, c.genKey(id, ownerID))

	if !loaded {
		conv, loadErr = c.next.FindByID(ctx, id, ownerID)
	}
	if loadErr != nil {
		return nil, loadErr
	}

	switch {
	case err == nil:
	case errors.Is(err, backend.TxFailedErr):
		c.logger.Debug("conversation changed during cache fill, not cached", "conversation_id", id)
	default:
		c.logger.Warn("cache write failed", "conversation_id", id, "error", err)
	}

	return conv, nil
}

// Save writes through and evicts the cached copy once the write is committed
func (c *CachedConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	if err := c.next.Save(ctx, conv); err != nil {
		return err
	}
	c.invalidateAfterCommit(ctx, conv.ID, conv.OwnerID)
	return nil
}

// ListByOwner is not cached
func (c *CachedConversationRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	return c.next.ListByOwner(ctx, ownerID)
}

// SoftDelete deletes through and evicts the cached copy once the delete is committed
func (c *CachedConversationRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	if err := c.next.SoftDelete(ctx, id, ownerID); err != nil {
		return err
	}
	c.invalidateAfterCommit(ctx, id, ownerID)
	return nil
}

func (c *CachedConversationRepository) invalidateAfterCommit(ctx context.Context, id, ownerID string) {
	// The request context may be cancelled by the time the hook runs
	hookCtx := context.WithoutCancel(ctx)
	repositories.AfterCommit(ctx, func() {
		c.invalidate(hookCtx, id, ownerID)
	})
}

// invalidate bumps the generation, failing any in-flight fill, and drops the entry
func (c *CachedConversationRepository) invalidate(ctx context.Context, id, ownerID string) {
	gen := c.genKey(id, ownerID)
	_, err := c.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Incr(ctx, gen)
		pipe.Expire(ctx, gen, c.ttl)
		pipe.Del(ctx, c.key(id, ownerID))
		return nil
	})
	if err != nil {
		c.logger.Warn("cache eviction failed", "conversation_id", id, "error", err)
	}
}
