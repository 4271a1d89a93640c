package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through cache for derived documents such as tour stats.
// A Cache without a redis client still collapses concurrent loads.
type Cache struct {
	RDB    redis.UniversalClient
	Prefix string
	Log    *zap.Logger
	// LoadTimeout bounds a shared load, which outlives the caller that
	// started it.
	LoadTimeout time.Duration
	sf          singleflight.Group

	mu   sync.Mutex
	gens map[string]int64
}

const defaultLoadTimeout = 30 * time.Second

// New returns a cache backed by redis at addr, or a load-only cache when
// addr is empty.
func New(addr, pass string, db int, log *zap.Logger) *Cache {
	c := &Cache{Prefix: "natours:", Log: log}
	if addr != "" {
		c.RDB = redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
	}
	return c
}

func (c *Cache) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	key = c.Prefix + key
	if c.RDB != nil {
		b, err := c.RDB.Get(ctx, key).Bytes()
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, redis.Nil) {
			c.log().Warn("cache get", zap.String("key", key), zap.Error(err))
		}
	}
	ch := c.sf.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout())
		defer cancel()
		b, e := load(lctx)
		if e != nil {
			return nil, e
		}
		if c.RDB != nil && ttl > 0 {
			if e := c.RDB.Set(lctx, key, b, ttl).Err(); e != nil {
				c.log().Warn("cache set", zap.String("key", key), zap.Error(e))
			}
		}
		return b, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) loadTimeout() time.Duration {
	if c.LoadTimeout > 0 {
		return c.LoadTimeout
	}
	return defaultLoadTimeout
}

// Versioned scopes key to the current generation of ns.
func (c *Cache) Versioned(ctx context.Context, ns, key string) string {
	if c == nil {
		return ns + ":" + key
	}
	return fmt.Sprintf("%s:v%d:%s", ns, c.generation(ctx, ns), key)
}

func (c *Cache) generation(ctx context.Context, ns string) int64 {
	if c.RDB != nil {
		n, err := c.RDB.Get(ctx, c.Prefix+ns+":gen").Int64()
		switch {
		case err == nil:
			return n
		case errors.Is(err, redis.Nil):
			return 0
		default:
			c.log().Warn("cache generation", zap.String("ns", ns), zap.Error(err))
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[ns]
}

// Bump starts a new generation of ns. Keys of older generations are never
// read again and expire by their TTL.
func (c *Cache) Bump(ctx context.Context, ns string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.gens == nil {
		c.gens = map[string]int64{}
	}
	c.gens[ns]++
	c.mu.Unlock()
	if c.RDB != nil {
		if err := c.RDB.Incr(ctx, c.Prefix+ns+":gen").Err(); err != nil {
			c.log().Warn("cache bump", zap.String("ns", ns), zap.Error(err))
		}
	}
}

func (c *Cache) Close() error {
	if c == nil || c.RDB == nil {
		return nil
	}
	return c.RDB.Close()
}

// GetOrLoadJSON caches load's result as JSON. A nil cache calls load directly.
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var out T
	if c == nil {
		return load(ctx)
	}
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if e := json.Unmarshal(b, &out); e != nil {
		return out, e
	}
	return out, nil
}
