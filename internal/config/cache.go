package config

import "time"

// CatalogueCache configures the Redis response cache in front of the
// public lecture and course listings.  Only successful GET responses
// are cached: catalogue writes are admin-only and rare, while the
// listings are hit on every page load during a signup window.
type CatalogueCache struct {
	Enabled      bool
	TTL          time.Duration
	MaxBodyBytes int
}

// LoadCatalogueCache reads the cache settings.  A short TTL keeps
// spot counts in listings reasonably fresh without a separate
// invalidation path.
func LoadCatalogueCache() CatalogueCache {
	cfg := CatalogueCache{
		Enabled:      envBool("CATALOGUE_CACHE_ENABLED", true),
		TTL:          envDur("CATALOGUE_CACHE_TTL", time.Minute),
		MaxBodyBytes: envInt("CATALOGUE_CACHE_MAX_BODY", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.MaxBodyBytes < 1 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}
