package store

import (
	"context"
	"fmt"
	"time"

	"moonmining/internal/platform/store/pg"

	"github.com/redis/go-redis/v9"
)

const (
	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// openPG opens the pool, waits until it answers a ping and wraps it with the sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
		AppName:  cfg.AppName,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(toCtx)
		cancel()
		if lastErr == nil {
			return newPGAdapter(p), nil
		}

		s.Log.Debug().Int("attempt", i+1).Err(lastErr).Msg("postgres not ready")
		select {
		case <-ctx.Done():
			p.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffCeiling)
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}

// newRedis is a seam for tests
var newRedis = redis.NewClient

// openRedis builds the client and fails fast when the server is unreachable
func openRedis(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.RDS.Addr == "" {
		return nil, fmt.Errorf("redis enabled without an address")
	}
	dial := cfg.RDS.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	rc := newRedis(&redis.Options{
		Addr:        cfg.RDS.Addr,
		Password:    cfg.RDS.Password,
		DB:          cfg.RDS.DB,
		DialTimeout: dial,
	})

	pctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}
