package module

import (
	"time"

	"moonmining/internal/platform/config"
)

// Options for the extractions module
type Options struct {
	Workers        int
	UpsertRetries  int
	RecomputeBatch int
	LockTimeout    time.Duration
}

// FromConfig fills options from environment
// CORE_EXTRACTIONS_WORKERS (default 4) is the number of owners processed concurrently
// CORE_EXTRACTIONS_UPSERT_RETRIES (default 1) is how often a conflicting upsert is retried
// CORE_EXTRACTIONS_RECOMPUTE_BATCH (default 500) is the page size of value recomputation
// CORE_EXTRACTIONS_LOCK_TIMEOUT (default 5s) bounds row lock waits inside an upsert
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_EXTRACTIONS_")
	return Options{
		Workers:        c.MayInt("WORKERS", 4),
		UpsertRetries:  c.MayInt("UPSERT_RETRIES", 1),
		RecomputeBatch: c.MayInt("RECOMPUTE_BATCH", 500),
		LockTimeout:    c.MayDuration("LOCK_TIMEOUT", 5*time.Second),
	}
}
