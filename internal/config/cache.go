package config

import "time"

// CacheConfig tunes the availability response cache.  Availability goes
// stale the moment a booking lands, so the TTL is deliberately short and
// every booking-path mutation bumps the owning restaurant's cache
// generation; the TTL only bounds staleness for changes the service
// cannot observe (manual database edits).
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the cache tunables from the environment.  The
// defaults suit a busy service line: ten-second entries, bodies up to
// 256 KiB (a full floor listing fits comfortably).
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 10*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "avail"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 256 << 10
	}
	return cfg
}
