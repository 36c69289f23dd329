package schengen

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ResultCache stores computed results per driver and evaluation day. A
// driver's entries are dropped whenever its facts or override change.
//
// Every driver has a generation that Invalidate advances. Get reports the
// current generation and Put stores only if it is still the same, so a
// result computed from data read before an invalidation is never cached.
type ResultCache interface {
	Get(ctx context.Context, driverID uuid.UUID, day CivilDate) (*ComplianceResult, uint64, error)
	Put(ctx context.Context, res ComplianceResult, day CivilDate, generation uint64) error
	Invalidate(ctx context.Context, driverID uuid.UUID) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID, CivilDate) (*ComplianceResult, uint64, error) {
	return nil, 0, nil
}
func (noopCache) Put(context.Context, ComplianceResult, CivilDate, uint64) error { return nil }
func (noopCache) Invalidate(context.Context, uuid.UUID) error { return nil }

// RedisCache keeps one hash per driver, keyed by evaluation day, next to a
// generation counter.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// OpenRedis returns nil when addr is empty.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "schengen:"}
}

func (c *RedisCache) key(driverID uuid.UUID) string {
	return c.prefix + "result:" + driverID.String()
}

func (c *RedisCache) genKey(driverID uuid.UUID) string {
	return c.prefix + "gen:" + driverID.String()
}

// Get returns the cached result for day (nil on a miss) and the driver's
// generation.
func (c *RedisCache) Get(ctx context.Context, driverID uuid.UUID, day CivilDate) (*ComplianceResult, uint64, error) {
	var (
		hget *redis.StringCmd
		gen  *redis.StringCmd
	)
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		gen = p.Get(ctx, c.genKey(driverID))
		hget = p.HGet(ctx, c.key(driverID), day.String())
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	generation, err := parseGeneration(gen)
	if err != nil {
		return nil, 0, err
	}
	b, err := hget.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, nil
	}
	if err != nil {
		return nil, generation, err
	}
	var res ComplianceResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, generation, err
	}
	return &res, generation, nil
}

// Put stores res under day if the driver's generation still equals
// generation. A lost race is not an error; the entry is simply not written.
func (c *RedisCache) Put(ctx context.Context, res ComplianceResult, day CivilDate, generation uint64) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	key, gk := c.key(res.DriverID), c.genKey(res.DriverID)

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := parseGeneration(tx.Get(ctx, gk))
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, day.String(), b)
			p.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate advances the generation and drops every cached day.
func (c *RedisCache) Invalidate(ctx context.Context, driverID uuid.UUID) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, c.genKey(driverID))
		p.Del(ctx, c.key(driverID))
		return nil
	})
	return err
}

func parseGeneration(cmd *redis.StringCmd) (uint64, error) {
	n, err := cmd.Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
