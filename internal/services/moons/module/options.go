package module

import (
	"moonmining/internal/core/valuation"
	"moonmining/internal/platform/config"
)

// Options holds configuration settings for the moons module
type Options struct {
	VolumePerMonth float64
}

// FromConfig reads CORE_MOONS_VOLUME_PER_MONTH (m3, defaults to the game's monthly yield)
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_MOONS_")
	return Options{
		VolumePerMonth: c.MayFloat64("VOLUME_PER_MONTH", valuation.VolumePerMonth),
	}
}
