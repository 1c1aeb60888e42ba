package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/userdeck/userdeck/internal/observability"
)

const versionKey = "users:list:ver"

// Directory caches serialized directory pages in redis. Every mutation bumps
// a version counter, so stale pages simply stop being addressable instead of
// being hunted down key by key. Redis being unavailable degrades to a miss,
// never to an error.
type Directory struct {
	rdb  *redis.Client
	ttl  time.Duration
	prom *observability.Prom
}

func NewDirectory(rdb *redis.Client, ttl time.Duration, prom *observability.Prom) *Directory {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &Directory{
		rdb:  rdb,
		ttl:  ttl,
		prom: prom,
	}
}

// PageKey builds the cache key for one page under the current version.
func (c *Directory) PageKey(ctx context.Context, role string, active string, page, limit int) string {
	ver, err := c.rdb.Get(ctx, versionKey).Int64()

	if err != nil {
		ver = 0
	}

	return "users:list:v" + strconv.FormatInt(ver, 10) +
		":role=" + role +
		":active=" + active +
		":page=" + strconv.Itoa(page) +
		":limit=" + strconv.Itoa(limit)
}

func (c *Directory) GetPage(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()

	if err != nil {
		if c.prom != nil {
			c.prom.CacheMisses.WithLabelValues("directory_page").Inc()
		}
		return nil, false
	}

	if c.prom != nil {
		c.prom.CacheHits.WithLabelValues("directory_page").Inc()
	}
	return b, true
}

func (c *Directory) SetPage(ctx context.Context, key string, payload []byte) {
	_ = c.rdb.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate bumps the directory version after any user mutation.
func (c *Directory) Invalidate(ctx context.Context) {
	_ = c.rdb.Incr(ctx, versionKey).Err()
}
