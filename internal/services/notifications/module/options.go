package module

import "moonmining/internal/platform/config"

// Options holds configuration settings for the notifications module
type Options struct {
	BatchSize int
}

// FromConfig reads CORE_NOTIFICATIONS_BATCH_SIZE (default 500)
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_NOTIFICATIONS_")
	return Options{
		BatchSize: c.MayInt("BATCH_SIZE", 500),
	}
}
