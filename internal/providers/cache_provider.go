package providers

import (
	"aprsd/internal/structures"
	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"time"
)

const defaultCacheTTL = 5 * time.Second

// CacheProviderInterface holds rendered API responses for a short time.
// Keys have the form "<namespace>:<rest>"; the namespace names the endpoint.
type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)
}

type CacheProvider struct {
	cache  *freecache.Cache
	expire int
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Cache disabled")
		return &noopCache{}
	}

	sizeBytes := conf.Cache.Size * 1024 * 1024
	expire := expireSeconds(conf.Cache.TTL)
	logger.Infof(TypeApp, "Response cache: %s, TTL %s",
		humanize.IBytes(uint64(sizeBytes)), time.Duration(expire)*time.Second)

	return &CacheProvider{
		cache:  freecache.NewCache(sizeBytes),
		expire: expire,
	}
}

// expireSeconds rounds ttl up to whole seconds, the resolution of freecache.
func expireSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return int((ttl + time.Second - 1) / time.Second)
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *CacheProvider) Set(key string, value []byte) {
	_ = c.cache.Set([]byte(key), value, c.expire)
}

func (c *CacheProvider) Del(key string) {
	c.cache.Del([]byte(key))
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ string, _ []byte)      {}
func (n *noopCache) Del(_ string)                {}
