package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"moonmining/internal/platform/config"

	"github.com/rs/zerolog"
)

func TestOpen_NothingEnabled(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Config{}, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.PG != nil || s.RDS != nil {
		t.Fatalf("no seams should be set: %+v", s)
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard on empty store: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close on empty store: %v", err)
	}
}

func TestOpen_BadPGURL(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Config{PG: PGConfig{Enabled: true, URL: "://bad"}})
	if err == nil || s != nil {
		t.Fatalf("expected error and nil store, got %v / %+v", err, s)
	}
}

func TestOpen_RedisWithoutAddr(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{RDS: RedisConfig{Enabled: true}})
	if err == nil || !strings.Contains(err.Error(), "without an address") {
		t.Fatalf("expected missing address error, got %v", err)
	}
}

func TestOpen_RedisUnreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, Config{RDS: RedisConfig{Enabled: true, Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}})
	if err == nil || !strings.Contains(err.Error(), "redis ping") {
		t.Fatalf("expected redis ping error, got %v", err)
	}
}

type pingTx struct {
	fakeQ
	err error
}

func (p *pingTx) Tx(ctx context.Context, fn func(RowQuerier) error) error { return fn(p) }
func (p *pingTx) Ping(context.Context) error                             { return p.err }

func TestGuard_ReportsPGFailure(t *testing.T) {
	t.Parallel()

	s := &Store{PG: &pingTx{err: errors.New("down")}}
	err := s.Guard(context.Background())
	if err == nil || !strings.Contains(err.Error(), "pg: down") {
		t.Fatalf("Guard = %v", err)
	}

	var nilStore *Store
	if nilStore.Guard(context.Background()) == nil {
		t.Fatalf("nil store should fail Guard")
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://u:p@db:5432/moons")
	t.Setenv("SERVICE_PGSQL_MAX_CONNS", "4")
	t.Setenv("SERVICE_REDIS_ADDR", "cache:6379")
	t.Setenv("SERVICE_REDIS_DB", "2")

	cfg := FromConfig(config.New())
	if !cfg.PG.Enabled || cfg.PG.MaxConns != 4 {
		t.Fatalf("pg config: %+v", cfg.PG)
	}
	if !cfg.RDS.Enabled || cfg.RDS.Addr != "cache:6379" || cfg.RDS.DB != 2 {
		t.Fatalf("redis config: %+v", cfg.RDS)
	}

	t.Setenv("SERVICE_REDIS_ENABLED", "false")
	if FromConfig(config.New()).RDS.Enabled {
		t.Fatalf("explicit disable ignored")
	}
}
