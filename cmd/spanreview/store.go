package main

import (
	"context"
	"fmt"

	"spanreview/internal/cache"
	"spanreview/internal/cache/disk"
	"spanreview/internal/cache/memory"
	"spanreview/internal/cache/pgstore"
	"spanreview/internal/cache/s3store"
	"spanreview/internal/config"
)

const memoryEntries = 256

// openStore builds the cache backend named by cfg.Cache. Remote backends get
// an in-process front so repeated lookups in one run stay local. A nil store
// means caching is off.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return memory.New(memoryEntries, cfg.CacheTTL), nil
	case config.CacheDisk:
		s, err := disk.Open(disk.Config{Root: cfg.CacheDir, TTL: cfg.CacheTTL})
		if err != nil {
			return nil, fmt.Errorf("open disk cache: %w", err)
		}
		return s, nil
	case config.CacheS3:
		s, err := s3store.New(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("open s3 cache: %w", err)
		}
		return cache.NewTiered(memory.New(memoryEntries, cfg.CacheTTL), s), nil
	case config.CachePostgres:
		s, err := pgstore.Open(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres cache: %w", err)
		}
		return cache.NewTiered(memory.New(memoryEntries, cfg.CacheTTL), s), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache)
	}
}
