package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is empty")
	ErrMissingRegionPath  = errors.New("no Schengen geojson path configured")
	ErrInvalidTimezone    = errors.New("invalid Schengen reference timezone")
)

// Defaults used when neither the settings file nor the environment override them.
const (
	DefaultPort                 = "5050"
	DefaultTimezone             = "Europe/Sarajevo"
	DefaultGeoJSONPath          = "data/schengen.geojson"
	DefaultWarningThresholdDays = 7
	DefaultAggregateConcurrency = 4
)

// Config holds process-wide settings for the fleet backend.
type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string

	// Schengen engine
	Timezone             string
	GeoJSONPaths         []string
	MemberCountries      []string
	WarningThresholdDays int
	AggregateConcurrency int
	// AggregateHour is the hour (in Timezone) of the daily aggregation run; -1 disables it.
	AggregateHour int

	// Host-edge tokens
	AdminToken      string
	DispatcherToken string

	// Redis result cache; empty RedisAddr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

// fileSettings is the YAML shape of SCHENGEN_CONFIG.
type fileSettings struct {
	Timezone             string   `yaml:"timezone"`
	GeoJSONPaths         []string `yaml:"geojson_paths"`
	MemberCountries      []string `yaml:"member_countries"`
	WarningThresholdDays *int     `yaml:"warning_threshold_days"`
	AggregateConcurrency *int     `yaml:"aggregate_concurrency"`
	AggregateHour        *int     `yaml:"aggregate_schedule_hour"`
}

// Load builds a Config from the optional YAML file named by SCHENGEN_CONFIG,
// then applies environment variables on top.
//
// Environment variables:
//   - PORT (default 5050)
//   - DATABASE_URL (required)
//   - CORS_ALLOWED_ORIGINS: comma separated
//   - SCHENGEN_CONFIG: path to YAML settings
//   - SCHENGEN_TIMEZONE (default Europe/Sarajevo)
//   - SCHENGEN_GEOJSON_PATH: comma separated list (default data/schengen.geojson)
//   - SCHENGEN_MEMBER_COUNTRIES: comma separated ISO alpha-2 filter
//   - SCHENGEN_WARNING_DAYS, SCHENGEN_AGGREGATE_CONCURRENCY, SCHENGEN_AGGREGATE_HOUR
//   - ADMIN_API_TOKEN, DISPATCHER_API_TOKEN
//   - REDIS_ADDR, REDIS_PASS, REDIS_DB, SCHENGEN_CACHE_TTL (Go duration, default 10m)
func Load() (Config, error) {
	cfg := Config{
		Port:                 DefaultPort,
		Timezone:             DefaultTimezone,
		GeoJSONPaths:         []string{DefaultGeoJSONPath},
		WarningThresholdDays: DefaultWarningThresholdDays,
		AggregateConcurrency: DefaultAggregateConcurrency,
		AggregateHour:        -1,
		CacheTTL:             10 * time.Minute,
	}

	if path := strings.TrimSpace(os.Getenv("SCHENGEN_CONFIG")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read settings file: %w", err)
		}
		if err := cfg.applyYAML(b); err != nil {
			return cfg, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyYAML(b []byte) error {
	var fs fileSettings
	if err := yaml.Unmarshal(b, &fs); err != nil {
		return err
	}
	if fs.Timezone != "" {
		c.Timezone = fs.Timezone
	}
	if len(fs.GeoJSONPaths) > 0 {
		c.GeoJSONPaths = fs.GeoJSONPaths
	}
	if len(fs.MemberCountries) > 0 {
		c.MemberCountries = fs.MemberCountries
	}
	if fs.WarningThresholdDays != nil {
		c.WarningThresholdDays = *fs.WarningThresholdDays
	}
	if fs.AggregateConcurrency != nil {
		c.AggregateConcurrency = *fs.AggregateConcurrency
	}
	if fs.AggregateHour != nil {
		c.AggregateHour = *fs.AggregateHour
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Port = v
	}
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	if v := splitList(os.Getenv("CORS_ALLOWED_ORIGINS")); len(v) > 0 {
		c.AllowedOrigins = v
	}
	if v := strings.TrimSpace(os.Getenv("SCHENGEN_TIMEZONE")); v != "" {
		c.Timezone = v
	}
	if v := splitList(os.Getenv("SCHENGEN_GEOJSON_PATH")); len(v) > 0 {
		c.GeoJSONPaths = v
	}
	if v := splitList(os.Getenv("SCHENGEN_MEMBER_COUNTRIES")); len(v) > 0 {
		c.MemberCountries = v
	}
	envInt("SCHENGEN_WARNING_DAYS", &c.WarningThresholdDays)
	envInt("SCHENGEN_AGGREGATE_CONCURRENCY", &c.AggregateConcurrency)
	envInt("SCHENGEN_AGGREGATE_HOUR", &c.AggregateHour)

	c.AdminToken = os.Getenv("ADMIN_API_TOKEN")
	c.DispatcherToken = os.Getenv("DISPATCHER_API_TOKEN")

	c.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	c.RedisPassword = os.Getenv("REDIS_PASS")
	envInt("REDIS_DB", &c.RedisDB)
	if v := strings.TrimSpace(os.Getenv("SCHENGEN_CACHE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.CacheTTL = d
		}
	}
}

// Validate checks the settings required to start the server.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return c.ValidateEngine()
}

// ValidateEngine checks only the settings the Schengen engine needs.
func (c Config) ValidateEngine() error {
	if len(c.GeoJSONPaths) == 0 {
		return ErrMissingRegionPath
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.AggregateHour > 23 {
		return fmt.Errorf("aggregate hour %d out of range", c.AggregateHour)
	}
	return nil
}

// Location resolves the reference timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, c.Timezone)
	}
	return loc, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
