package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"moonmining/internal/core/extraction"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/store/storetest"
	"moonmining/internal/platform/testkit"
	"moonmining/internal/services/extractions/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	started = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	ready   = started.Add(14 * 24 * time.Hour)
)

func recordRow(id int64, status string) []any {
	return []any{id, int64(1000000000001), status, started, false, ready,
		ready.Add(3 * time.Hour), nil, ready.Add(time.Hour), int64(2112625428), nil, int64(7),
		950.0, false}
}

func TestFindByStartedAt(t *testing.T) {
	db := storetest.New().
		On("FROM extractions", storetest.Result{Rows: [][]any{recordRow(11, "CP")}}).
		On("FROM extraction_products", storetest.Result{Rows: [][]any{{int64(45506), 90.0}, {int64(46676), 10.0}}})
	r, ok, err := NewPG().Bind(db).FindByStartedAt(context.Background(), 1000000000001, started.In(time.FixedZone("x", 3600)))
	testkit.MustNoErr(t, err, "FindByStartedAt")
	if !ok || r.ID != 11 || r.Status != extraction.StatusCompleted {
		t.Fatalf("record=%+v ok=%v", r, ok)
	}
	if r.CanceledAt != nil || r.FracturedAt == nil || *r.FracturedBy != 7 || *r.Value != 950 {
		t.Fatalf("record=%+v", r)
	}
	if len(r.Products) != 2 || r.Products[0].OreTypeID != 45506 {
		t.Fatalf("products=%v", r.Products)
	}

	call := db.CallsMatching("FROM extractions")[0]
	if !strings.Contains(call.SQL, "FOR UPDATE") {
		t.Fatalf("lookup must lock: %s", call.SQL)
	}
	if at := call.Args[1].(time.Time); at.Location() != time.UTC {
		t.Fatalf("start time not normalized to UTC")
	}
}

func TestFindLatestOpen_Missing(t *testing.T) {
	db := storetest.New()
	_, ok, err := NewPG().Bind(db).FindLatestOpen(context.Background(), 1000000000001)
	testkit.MustNoErr(t, err, "FindLatestOpen")
	if ok {
		t.Fatalf("expected no record")
	}
	if len(db.CallsMatching("extraction_products")) != 0 {
		t.Fatalf("products loaded for a missing record")
	}
}

func TestInsert_DuplicateKeyIsConflict(t *testing.T) {
	db := storetest.New().On("INSERT INTO extractions",
		storetest.Result{Err: &pgconn.PgError{Code: "23505", ConstraintName: "extractions_refinery_started_key"}})
	_, err := NewPG().Bind(db).Insert(context.Background(), domain.Record{
		RefineryID: 1000000000001, Status: extraction.StatusStarted, StartedAt: started, ChunkArrivalAt: ready,
	})
	if !perr.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestInsert_StoresStatusCode(t *testing.T) {
	db := storetest.New().On("INSERT INTO extractions", storetest.Result{Rows: [][]any{{int64(5)}}})
	id, err := NewPG().Bind(db).Insert(context.Background(), domain.Record{
		RefineryID: 1000000000001, Status: extraction.StatusReady, StartedAt: ready, StartedAtInferred: true,
		ChunkArrivalAt: ready,
	})
	testkit.MustNoErr(t, err, "Insert")
	if id != 5 {
		t.Fatalf("id=%d", id)
	}
	args := db.Calls()[0].Args
	if args[1] != "RD" || args[3] != true {
		t.Fatalf("args=%v", args)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := storetest.New().On("UPDATE extractions", storetest.Result{Affected: 0})
	err := NewPG().Bind(db).Update(context.Background(), domain.Record{ID: 9, Status: extraction.StatusCanceled})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplaceProducts(t *testing.T) {
	db := storetest.New()
	repo := NewPG().Bind(db)
	err := repo.ReplaceProducts(context.Background(), 3, []extraction.Product{{OreTypeID: 45506, Volume: 90}, {OreTypeID: 46676, Volume: 10}})
	testkit.MustNoErr(t, err, "ReplaceProducts")
	calls := db.Calls()
	if len(calls) != 2 || !strings.Contains(calls[0].SQL, "DELETE") || !strings.Contains(calls[1].SQL, "UNNEST") {
		t.Fatalf("calls=%v", calls)
	}
	if ids := calls[1].Args[1].([]int64); len(ids) != 2 || ids[1] != 46676 {
		t.Fatalf("ids=%v", ids)
	}

	testkit.MustNoErr(t, repo.ReplaceProducts(context.Background(), 3, nil), "clear")
	if len(db.Calls()) != 3 {
		t.Fatalf("clearing should only delete")
	}
}

func TestIDs(t *testing.T) {
	db := storetest.New().On("SELECT id FROM extractions", storetest.Result{Rows: [][]any{{int64(3)}, {int64(4)}}})
	ids, err := NewPG().Bind(db).IDs(context.Background(), 2, 2)
	testkit.MustNoErr(t, err, "IDs")
	if len(ids) != 2 || ids[0] != 3 {
		t.Fatalf("ids=%v", ids)
	}

	boom := errors.New("connection reset")
	db = storetest.New().On("SELECT id", storetest.Result{Err: boom})
	if _, err := NewPG().Bind(db).IDs(context.Background(), 0, 2); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestMigrate(t *testing.T) {
	db := storetest.New()
	testkit.MustNoErr(t, Migrate(context.Background(), db), "Migrate")
	if !strings.Contains(db.Calls()[0].SQL, "extractions_refinery_started_key") {
		t.Fatalf("schema missing natural key")
	}
}
