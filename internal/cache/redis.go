// Package cache provides the Redis-backed view cache for post listings and
// detail views. It stands in for the original rendered-view revalidation:
// reads go cache-aside, mutations invalidate the owner's keys.
//
// Every method is best-effort. A Redis outage degrades the service to
// uncached database reads; it never fails a request.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jajan/service/internal/post"
)

// DefaultTTL bounds staleness for cached views that were never explicitly
// invalidated (e.g. rows changed by another process).
const DefaultTTL = 5 * time.Minute

// ViewCache implements post.ViewCache on top of Redis.
type ViewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a ViewCache and verifies the connection.
func New(addr string, ttl time.Duration) (*ViewCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &ViewCache{rdb: rdb, ttl: ttl}, nil
}

// NewWithClient wraps an existing Redis client; used by tests.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{rdb: rdb, ttl: ttl}
}

func listKey(ownerID string) string { return "posts:list:" + ownerID }

func detailKey(ownerID, id string) string { return "posts:detail:" + ownerID + ":" + id }

// GetList returns the cached listing for the owner, or ok=false on a miss.
func (c *ViewCache) GetList(ctx context.Context, ownerID string) ([]post.Post, bool) {
	data, err := c.rdb.Get(ctx, listKey(ownerID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: get list for %s: %v", ownerID, err)
		}
		return nil, false
	}
	var posts []post.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		log.Printf("cache: decode list for %s: %v", ownerID, err)
		return nil, false
	}
	return posts, true
}

// SetList stores the owner's listing.
func (c *ViewCache) SetList(ctx context.Context, ownerID string, posts []post.Post) {
	payload, err := json.Marshal(posts)
	if err != nil {
		log.Printf("cache: encode list for %s: %v", ownerID, err)
		return
	}
	if err := c.rdb.Set(ctx, listKey(ownerID), payload, c.ttl).Err(); err != nil {
		log.Printf("cache: set list for %s: %v", ownerID, err)
	}
}

// GetDetail returns the cached detail view, or ok=false on a miss.
func (c *ViewCache) GetDetail(ctx context.Context, ownerID, id string) (*post.Post, bool) {
	data, err := c.rdb.Get(ctx, detailKey(ownerID, id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: get detail %s/%s: %v", ownerID, id, err)
		}
		return nil, false
	}
	p := &post.Post{}
	if err := json.Unmarshal(data, p); err != nil {
		log.Printf("cache: decode detail %s/%s: %v", ownerID, id, err)
		return nil, false
	}
	return p, true
}

// SetDetail stores one post's detail view.
func (c *ViewCache) SetDetail(ctx context.Context, ownerID string, p *post.Post) {
	payload, err := json.Marshal(p)
	if err != nil {
		log.Printf("cache: encode detail %s/%s: %v", ownerID, p.ID, err)
		return
	}
	if err := c.rdb.Set(ctx, detailKey(ownerID, p.ID), payload, c.ttl).Err(); err != nil {
		log.Printf("cache: set detail %s/%s: %v", ownerID, p.ID, err)
	}
}

// InvalidateList drops the owner's cached listing.
func (c *ViewCache) InvalidateList(ctx context.Context, ownerID string) {
	if err := c.rdb.Del(ctx, listKey(ownerID)).Err(); err != nil {
		log.Printf("cache: invalidate list for %s: %v", ownerID, err)
	}
}

// InvalidateDetail drops one post's cached detail view.
func (c *ViewCache) InvalidateDetail(ctx context.Context, ownerID, id string) {
	if err := c.rdb.Del(ctx, detailKey(ownerID, id)).Err(); err != nil {
		log.Printf("cache: invalidate detail %s/%s: %v", ownerID, id, err)
	}
}
