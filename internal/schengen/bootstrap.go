package schengen

import (
	"fmt"
	"log"

	"github.com/dispatchly/fleet-backend/internal/config"
	"github.com/dispatchly/fleet-backend/internal/geofence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Bootstrap loads the region and builds a Postgres-backed engine from cfg.
// The returned redis client is nil when no cache is configured; the caller
// owns closing it.
func Bootstrap(cfg config.Config, d *gorm.DB, reg prometheus.Registerer) (*Engine, *redis.Client, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	var countries geofence.CountrySet
	if len(cfg.MemberCountries) > 0 {
		countries = geofence.NewCountrySet(cfg.MemberCountries...)
	}
	region, err := geofence.LoadFiles("schengen", cfg.GeoJSONPaths, countries)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[schengen] loaded %d polygons from %v", region.Len(), cfg.GeoJSONPaths)

	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	store := NewGormStore(d)
	opts := Options{
		Region:               region,
		Location:             loc,
		Positions:            store,
		Facts:                store,
		Overrides:            store,
		Drivers:              store,
		Metrics:              metrics,
		Concurrency:          cfg.AggregateConcurrency,
		WarningThresholdDays: cfg.WarningThresholdDays,
	}

	rdb := OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		opts.Cache = NewRedisCache(rdb, cfg.CacheTTL)
		log.Printf("[schengen] result cache enabled at %s (ttl %s)", cfg.RedisAddr, cfg.CacheTTL)
	}

	e, err := NewEngine(opts)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, err
	}
	return e, rdb, nil
}
