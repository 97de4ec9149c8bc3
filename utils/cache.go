package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/blogapi/config"
)

const (
	cacheOpTimeout     = 2 * time.Second
	cacheScanTimeout   = 3 * time.Second
	cacheScanBatch     = 1000
	cacheScanMaxRounds = 10
	cacheGenPrefix     = "cache:gen:"
)

// CacheTTL returns the configured response cache lifetime.
func CacheTTL() time.Duration {
	if s := config.Get().CacheTTLSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return time.Hour
}

// CacheGetBytes returns the payload stored under key, if any.
func CacheGetBytes(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnw("cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores b under key. A non-positive ttl means CacheTTL.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	if ttl <= 0 {
		ttl = CacheTTL()
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnw("cache write failed", "key", key, "err", err)
	}
}

// CacheSuccess stores data wrapped in the success envelope so a hit can be written back as-is.
func CacheSuccess(key string, data interface{}) {
	b, err := json.Marshal(JSONResponse{Code: 0, Message: "success", Data: data})
	if err != nil {
		Sugar.Warnw("cache encode failed", "key", key, "err", err)
		return
	}
	CacheSetBytes(key, b, 0)
}

// CacheDelete drops a single key.
func CacheDelete(key string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := rc.Del(ctx, key).Err(); err != nil {
		Sugar.Warnw("cache delete failed", "key", key, "err", err)
	}
}

// CacheGeneration reads the version counter of a cache namespace. Readers put it in their keys,
// so a payload computed before BumpCacheGeneration lands under a key nobody reads any more.
// ok is false when Redis is off or unreachable; callers then skip the cache.
func CacheGeneration(namespace string) (gen int64, ok bool) {
	rc := GetRedis()
	if rc == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	gen, err := rc.Get(ctx, cacheGenPrefix+namespace).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		Sugar.Warnw("cache generation read failed", "namespace", namespace, "err", err)
		return 0, false
	}
	return gen, true
}

// BumpCacheGeneration retires every key built from the previous generation of namespace.
func BumpCacheGeneration(namespace string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := rc.Incr(ctx, cacheGenPrefix+namespace).Err(); err != nil {
		Sugar.Warnw("cache generation bump failed", "namespace", namespace, "err", err)
	}
}

// InvalidateByPrefix deletes every key starting with prefix.
func InvalidateByPrefix(prefix string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheScanTimeout)
	defer cancel()
	var cursor uint64
	for round := 0; round < cacheScanMaxRounds; round++ {
		keys, next, err := rc.Scan(ctx, cursor, prefix+"*", cacheScanBatch).Result()
		if err != nil {
			Sugar.Warnw("cache invalidate failed", "prefix", prefix, "err", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.Del(ctx, keys...).Err(); err != nil {
				Sugar.Warnw("cache invalidate failed", "prefix", prefix, "err", err)
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
