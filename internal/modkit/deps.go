// Package modkit carries the dependencies a service module is built from
package modkit

import (
	"moonmining/internal/modkit/repokit"
	"moonmining/internal/platform/config"
	"moonmining/internal/platform/logger"
	"moonmining/internal/platform/store"

	"github.com/redis/go-redis/v9"
)

// Deps is what cmd hands to every module constructor
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	RDS *redis.Client // nil when caching is disabled
}

// FromStore builds Deps from an opened store
func FromStore(st *store.Store, cfg config.Conf) Deps {
	d := Deps{Cfg: cfg}
	if st == nil {
		return d
	}
	d.Log = st.Log
	d.PG = st.PG
	d.RDS = st.RDS
	return d
}
