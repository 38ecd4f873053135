package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrGone is returned for a key marked with Tombstone until the mark expires.
var ErrGone = errors.New("cache: entry deleted")

var goneMark = []byte("\x00gone")

// Cache is a redis read-through cache; concurrent misses on one key share a single load.
//
// A load that was running when its key was invalidated does not write its
// result back. Loaded values are stored with SET NX so they never replace a
// tombstone written by another process.
type Cache struct {
	RDB *redis.Client
	TTL time.Duration
	sf  singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct{ stale bool }

func New(addr, pass string, db int, ttl time.Duration) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), ttl)
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{RDB: rdb, TTL: ttl, inflight: map[string]*flight{}}
}

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

// GetOrLoad returns the cached bytes for key or calls load and stores its result.
// A redis outage degrades to calling load; it never fails the read.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if ttl <= 0 {
		ttl = c.TTL
	}
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		if bytes.Equal(b, goneMark) {
			return nil, ErrGone
		}
		return b, nil
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		f := c.begin(key)
		b, e := load(ctx)
		if c.end(key, f) && e == nil {
			_ = c.RDB.SetNX(ctx, key, b, ttl).Err()
		}
		if e != nil {
			return nil, e
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) begin(key string) *flight {
	f := &flight{}
	c.mu.Lock()
	c.inflight[key] = f
	c.mu.Unlock()
	return f
}

// end reports whether f may still store its result.
func (c *Cache) end(key string, f *flight) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key] == f {
		delete(c.inflight, key)
	}
	return !f.stale
}

func (c *Cache) forget(keys []string) {
	c.mu.Lock()
	for _, k := range keys {
		if f, ok := c.inflight[k]; ok {
			f.stale = true
		}
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.sf.Forget(k)
	}
}

// Invalidate drops keys; errors are returned so callers can log them.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c.forget(keys)
	return c.RDB.Del(ctx, keys...).Err()
}

// Tombstone replaces keys with a deletion mark for one TTL, so reads return
// ErrGone instead of loading, and loads racing the delete cannot store the
// old value.
func (c *Cache) Tombstone(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c.forget(keys)
	_, err := c.RDB.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Set(ctx, k, goneMark, c.TTL)
		}
		return nil
	})
	return err
}
