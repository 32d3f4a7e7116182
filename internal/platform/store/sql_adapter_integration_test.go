//go:build integration_pg

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"moonmining/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func TestPGAdapter_TxCommitAndRollback_Integration(t *testing.T) {
	dsn := testkit.StartPostgres(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := Open(ctx, Config{AppName: "moonmining-it", PG: PGConfig{Enabled: true, URL: dsn, LogSQL: true}}, WithLogger(zerolog.Nop()))
	testkit.MustNoErr(t, err, "open")
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	testkit.MustNoErr(t, s.Guard(ctx), "guard")

	_, err = s.PG.Exec(ctx, `create table refineries (id bigint primary key, name text not null)`)
	testkit.MustNoErr(t, err, "create table")

	err = s.PG.Tx(ctx, func(q RowQuerier) error {
		return ExecOne(ctx, q, `insert into refineries (id, name) values ($1, $2)`, int64(1), "Tatara")
	})
	testkit.MustNoErr(t, err, "commit tx")

	boom := errors.New("boom")
	err = s.PG.Tx(ctx, func(q RowQuerier) error {
		if err := ExecOne(ctx, q, `insert into refineries (id, name) values ($1, $2)`, int64(2), "Athanor"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("rollback tx returned %v", err)
	}

	n, err := Scalar[int64](ctx, s.PG, `select count(*) from refineries`)
	testkit.MustNoErr(t, err, "count")
	if n != 1 {
		t.Fatalf("expected 1 committed row, got %d", n)
	}
}
