package catalogue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"moonmining/internal/core/valuation"
	"moonmining/internal/platform/config"
	"moonmining/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every cache key
const KeyPrefix = "moonmining:price:"

// noPrice is cached for ore types known to have no price
const noPrice = "-"

// CacheOptions controls the redis read-through cache
type CacheOptions struct {
	PriceTTL time.Duration
}

// CacheFromConfig reads SERVICE_REDIS_PRICE_TTL
func CacheFromConfig(cfg config.Conf) CacheOptions {
	return CacheOptions{PriceTTL: cfg.Prefix("SERVICE_REDIS_").MayDuration("PRICE_TTL", time.Hour)}
}

// Cached puts redis in front of a catalogue for prices and keeps ore types in process.
// Redis failures are logged and fall through to the inner catalogue
type Cached struct {
	inner valuation.Catalogue
	rds   *redis.Client
	ttl   time.Duration
	log   *logger.Logger

	mu    sync.RWMutex
	types map[int64]cachedType
}

type cachedType struct {
	ore valuation.OreType
	ok  bool
}

// NewCached wraps inner; a nil client disables the price cache
func NewCached(inner valuation.Catalogue, rds *redis.Client, opt CacheOptions) *Cached {
	if inner == nil {
		panic("catalogue.Cached requires a non nil inner catalogue")
	}
	if opt.PriceTTL <= 0 {
		opt.PriceTTL = time.Hour
	}
	return &Cached{
		inner: inner,
		rds:   rds,
		ttl:   opt.PriceTTL,
		log:   logger.Named("catalogue"),
		types: map[int64]cachedType{},
	}
}

var _ valuation.Catalogue = (*Cached)(nil)

// Key is the redis key holding the price of an ore type
func Key(oreTypeID int64) string { return KeyPrefix + strconv.FormatInt(oreTypeID, 10) }

// OreType implements valuation.Catalogue; results, including misses, are kept for the process lifetime
func (c *Cached) OreType(ctx context.Context, id int64) (valuation.OreType, bool, error) {
	c.mu.RLock()
	ct, hit := c.types[id]
	c.mu.RUnlock()
	if hit {
		return ct.ore, ct.ok, nil
	}

	o, ok, err := c.inner.OreType(ctx, id)
	if err != nil {
		return o, ok, err
	}
	c.mu.Lock()
	c.types[id] = cachedType{ore: o, ok: ok}
	c.mu.Unlock()
	return o, ok, nil
}

// Price implements valuation.Catalogue
func (c *Cached) Price(ctx context.Context, id int64) (float64, bool, error) {
	if c.rds == nil {
		return c.inner.Price(ctx, id)
	}

	key := Key(id)
	s, err := c.rds.Get(ctx, key).Result()
	switch {
	case err == nil:
		if s == noPrice {
			return 0, false, nil
		}
		if v, parseErr := strconv.ParseFloat(s, 64); parseErr == nil {
			return v, true, nil
		}
		c.log.Warn().Str("key", key).Str("value", s).Msg("catalogue: unparsable cached price")
	case errors.Is(err, redis.Nil):
	default:
		l := logger.Enrich(ctx, *c.log)
		l.Warn().Err(err).Str("key", key).Msg("catalogue: redis get failed")
	}

	price, ok, err := c.inner.Price(ctx, id)
	if err != nil {
		return 0, false, err
	}
	val := noPrice
	if ok {
		val = strconv.FormatFloat(price, 'g', -1, 64)
	}
	if err := c.rds.Set(ctx, key, val, c.ttl).Err(); err != nil {
		l := logger.Enrich(ctx, *c.log)
		l.Warn().Err(err).Str("key", key).Msg("catalogue: redis set failed")
	}
	return price, ok, nil
}

// Invalidate drops cached prices for the given ore types
func (c *Cached) Invalidate(ctx context.Context, ids ...int64) error {
	if c.rds == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}
	return c.rds.Del(ctx, keys...).Err()
}

// Refresh drops every cached price and the in-process ore types so the next reads hit the inner catalogue
func (c *Cached) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.types = map[int64]cachedType{}
	c.mu.Unlock()
	if c.rds == nil {
		return nil
	}

	var (
		cursor  uint64
		dropped int
	)
	for {
		keys, next, err := c.rds.Scan(ctx, cursor, KeyPrefix+"*", 500).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rds.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			dropped += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	l := logger.Enrich(ctx, *c.log)
	l.Debug().Int("keys", dropped).Msg("catalogue: price cache cleared")
	return nil
}
