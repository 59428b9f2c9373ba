package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"spanreview/internal/cache/s3store"
	"spanreview/internal/llmtool"
)

const (
	CacheDisk     = "disk"
	CacheMemory   = "memory"
	CacheS3       = "s3"
	CachePostgres = "postgres"
	CacheNone     = "none"
)

type Config struct {
	APIKey    string
	Model     string
	Cache     string
	CacheDir  string
	CacheTTL  time.Duration
	Tolerance float64
	MaxIters  int
	RPS       float64
	S3        s3store.Config
	PGDSN     string
}

// Load reads .env files (when present) and then the process environment.
// Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:    firstNonEmpty(env("GEMINI_API_KEY"), env("GOOGLE_API_KEY")),
		Model:     firstNonEmpty(env("SPANREVIEW_MODEL"), "gemini-2.5-flash"),
		Cache:     strings.ToLower(firstNonEmpty(env("SPANREVIEW_CACHE"), CacheDisk)),
		CacheDir:  firstNonEmpty(env("SPANREVIEW_CACHE_DIR"), defaultCacheDir()),
		CacheTTL:  30 * 24 * time.Hour,
		Tolerance: 1,
		MaxIters:  llmtool.DefaultMaxIters,
		S3: s3store.Config{
			Endpoint:  env("SPANREVIEW_S3_ENDPOINT"),
			Region:    firstNonEmpty(env("SPANREVIEW_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(env("SPANREVIEW_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(env("SPANREVIEW_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(env("SPANREVIEW_S3_BUCKET"), "spanreview-cache"),
			Prefix:    env("SPANREVIEW_S3_PREFIX"),
			UseSSL:    parseBool(env("SPANREVIEW_S3_USE_SSL"), true),
		},
		PGDSN: env("SPANREVIEW_PG_DSN"),
	}

	if raw := env("SPANREVIEW_CACHE_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: SPANREVIEW_CACHE_TTL %q: must be a positive duration", raw)
		}
		cfg.CacheTTL = d
	}
	if raw := env("SPANREVIEW_MATCH_TOLERANCE"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("config: SPANREVIEW_MATCH_TOLERANCE %q: %w", raw, err)
		}
		cfg.Tolerance = v
	}
	if raw := env("SPANREVIEW_MAX_ITERS"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("config: SPANREVIEW_MAX_ITERS %q: %w", raw, err)
		}
		cfg.MaxIters = v
	}
	if raw := env("SPANREVIEW_RPS"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("config: SPANREVIEW_RPS %q: %w", raw, err)
		}
		cfg.RPS = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Cache {
	case CacheDisk, CacheMemory, CacheS3, CachePostgres, CacheNone:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache)
	}
	if c.Tolerance <= 0 || c.Tolerance > 1 {
		return fmt.Errorf("config: match tolerance %v outside (0, 1]", c.Tolerance)
	}
	if c.MaxIters <= 0 {
		return fmt.Errorf("config: max iterations must be positive, got %d", c.MaxIters)
	}
	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "spanreview")
	}
	return filepath.Join(os.TempDir(), "spanreview")
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
