package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultDailyPlanLimit is the number of drops in a daily plan when the caller does not ask for a size.
	DefaultDailyPlanLimit = 30
	// MaxDailyPlanLimit is the largest daily plan a caller may ask for.
	MaxDailyPlanLimit = 100
)

// Profile is the configuration to start MemoDrops.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where memodrops stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of memodrops
	Version string

	// Study planning
	DailyPlanLimit        int           // MEMODROPS_DAILY_PLAN_LIMIT (default: 30)
	PlanLookupConcurrency int           // MEMODROPS_PLAN_LOOKUP_CONCURRENCY (default: 4)
	PreviewInterval       time.Duration // MEMODROPS_PREVIEW_INTERVAL (default: 1h)
	PreviewRate           float64       // MEMODROPS_PREVIEW_RATE, plans per second (default: 5)

	// Catalog cache
	CacheTTL           time.Duration // MEMODROPS_CACHE_TTL (default: 10m)
	CacheRedisAddr     string        // MEMODROPS_CACHE_REDIS_ADDR (default: "", Redis disabled)
	CacheRedisPassword string        // MEMODROPS_CACHE_REDIS_PASSWORD
	CacheRedisDB       int           // MEMODROPS_CACHE_REDIS_DB (default: 0)
	CacheRedisPrefix   string        // MEMODROPS_CACHE_REDIS_PREFIX (default: "memodrops:")
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRedisEnabled returns true if a Redis address is configured for the catalog cache.
func (p *Profile) IsRedisEnabled() bool {
	return p.CacheRedisAddr != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring invalid integer environment variable", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return n
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("ignoring invalid number environment variable", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return f
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("ignoring invalid duration environment variable", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return d
}

// FromEnv loads the planning and cache settings from MEMODROPS_* environment variables.
// Fields that are already set are overwritten only when the variable is present.
func (p *Profile) FromEnv() {
	p.DailyPlanLimit = getIntEnvOrDefault("MEMODROPS_DAILY_PLAN_LIMIT", orInt(p.DailyPlanLimit, DefaultDailyPlanLimit))
	p.PlanLookupConcurrency = getIntEnvOrDefault("MEMODROPS_PLAN_LOOKUP_CONCURRENCY", orInt(p.PlanLookupConcurrency, 4))
	p.PreviewInterval = getDurationEnvOrDefault("MEMODROPS_PREVIEW_INTERVAL", orDuration(p.PreviewInterval, time.Hour))
	p.PreviewRate = getFloatEnvOrDefault("MEMODROPS_PREVIEW_RATE", orFloat(p.PreviewRate, 5))

	p.CacheTTL = getDurationEnvOrDefault("MEMODROPS_CACHE_TTL", orDuration(p.CacheTTL, 10*time.Minute))
	p.CacheRedisAddr = getEnvOrDefault("MEMODROPS_CACHE_REDIS_ADDR", p.CacheRedisAddr)
	p.CacheRedisPassword = getEnvOrDefault("MEMODROPS_CACHE_REDIS_PASSWORD", p.CacheRedisPassword)
	p.CacheRedisDB = getIntEnvOrDefault("MEMODROPS_CACHE_REDIS_DB", p.CacheRedisDB)
	p.CacheRedisPrefix = getEnvOrDefault("MEMODROPS_CACHE_REDIS_PREFIX", orString(p.CacheRedisPrefix, "memodrops:"))
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v != 0 {
		return v
	}
	return def
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}

	if p.DailyPlanLimit < 1 || p.DailyPlanLimit > MaxDailyPlanLimit {
		return errors.Errorf("daily plan limit must be between 1 and %d, got %d", MaxDailyPlanLimit, p.DailyPlanLimit)
	}
	if p.PlanLookupConcurrency < 1 {
		p.PlanLookupConcurrency = 1
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "memodrops")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/memodrops"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("memodrops_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
