package store

import (
	"time"

	"moonmining/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG  PGConfig
	RDS RedisConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// RedisConfig configures redis connectivity
type RedisConfig struct {
	Enabled     bool
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration // default 5s
}

// FromConfig reads SERVICE_PGSQL_* and SERVICE_REDIS_* into a Config
func FromConfig(cfg config.Conf) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	rd := cfg.Prefix("SERVICE_REDIS_")

	out := Config{
		AppName: cfg.MayString("APP_NAME", "moonmining"),
		PG: PGConfig{
			URL:            pg.MayString("DBURL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 8)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 250),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		RDS: RedisConfig{
			Addr:        rd.MayString("ADDR", ""),
			Password:    rd.MayString("PASSWORD", ""),
			DB:          rd.MayInt("DB", 0),
			DialTimeout: rd.MayDuration("DIAL_TIMEOUT", 5*time.Second),
		},
	}
	out.PG.Enabled = out.PG.URL != ""
	out.RDS.Enabled = rd.MayBool("ENABLED", out.RDS.Addr != "") && out.RDS.Addr != ""
	return out
}
