package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/hashing"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
)

// CacheObserver receives hit and miss notifications; the metrics collector
// implements it.
type CacheObserver interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

type nopObserver struct{}

func (nopObserver) CacheHit(string)  {}
func (nopObserver) CacheMiss(string) {}

const groupCacheName = "question_group"

// GroupCache is a read-through cache of merged question groups. Concurrent
// misses for one key share a single load. Cache failures degrade to the
// backing reader.
type GroupCache struct {
	client   *Client
	next     question.GroupReader
	logger   logging.Logger
	observer CacheObserver
	flight   singleflight.Group
}

// GroupCacheOption configures a GroupCache.
type GroupCacheOption func(*GroupCache)

// WithObserver reports hits and misses to o.
func WithObserver(o CacheObserver) GroupCacheOption {
	return func(c *GroupCache) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewGroupCache decorates next.
func NewGroupCache(client *Client, next question.GroupReader, log logging.Logger, opts ...GroupCacheOption) *GroupCache {
	c := &GroupCache{client: client, next: next, logger: log, observer: nopObserver{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GroupKey is the cache key of a question.
func (c *GroupCache) GroupKey(key question.Key) string {
	return c.client.Key("group", hashing.Key64(key.String()))
}

// GetGroup implements question.GroupReader.
func (c *GroupCache) GetGroup(ctx context.Context, key question.Key) (question.Group, error) {
	ck := c.GroupKey(key)

	data, err := c.client.GetUnderlyingClient().Get(ctx, ck).Bytes()
	switch {
	case err == nil:
		var g question.Group
		if uerr := json.Unmarshal(data, &g); uerr == nil {
			c.observer.CacheHit(groupCacheName)
			return g, nil
		}
		c.logger.Warn("discarding undecodable cache entry", logging.String("key", ck))
	case !stderrors.Is(err, redis.Nil):
		c.logger.Warn("group cache read failed", logging.String("key", ck), logging.Err(err))
	}
	c.observer.CacheMiss(groupCacheName)

	v, err, _ := c.flight.Do(ck, func() (interface{}, error) {
		g, err := c.next.GetGroup(ctx, key)
		if err != nil {
			return nil, err
		}
		if raw, merr := json.Marshal(g); merr == nil {
			if serr := c.client.GetUnderlyingClient().Set(ctx, ck, raw, c.client.DefaultTTL()).Err(); serr != nil {
				c.logger.Warn("group cache write failed", logging.String("key", ck), logging.Err(serr))
			}
		}
		return g, nil
	})
	if err != nil {
		return question.Group{}, err
	}
	return v.(question.Group), nil
}

// Invalidate drops the cached groups of keys, typically after an upsert or
// answer binding.
func (c *GroupCache) Invalidate(ctx context.Context, keys ...question.Key) error {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	cks := make([]string, 0, len(keys))
	for _, k := range keys {
		ck := c.GroupKey(k)
		if _, dup := seen[ck]; dup {
			continue
		}
		seen[ck] = struct{}{}
		cks = append(cks, ck)
	}
	return c.client.GetUnderlyingClient().Del(ctx, cks...).Err()
}

//Personal.AI order the ending
