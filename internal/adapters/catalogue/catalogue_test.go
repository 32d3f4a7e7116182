package catalogue

import (
	"context"
	"errors"
	"testing"

	"moonmining/internal/core/valuation"
	perr "moonmining/internal/platform/errors"
	"moonmining/internal/platform/store/storetest"
	"moonmining/internal/platform/testkit"
)

func TestPG_OreType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := storetest.New().On("FROM ore_types", storetest.Result{
		Rows: [][]any{{int64(46312), "Bountiful Cinnabar", int64(1922), 10.0, "IM"}},
	})
	o, ok, err := NewPG(db).OreType(ctx, 46312)
	testkit.MustNoErr(t, err, "OreType")
	if !ok {
		t.Fatalf("expected ore type")
	}
	if o.Name != "Bountiful Cinnabar" || o.UnitVolume != 10 || o.Quality != valuation.QualityImproved {
		t.Fatalf("ore=%+v", o)
	}
	if o.Rarity() != valuation.RarityR32 {
		t.Fatalf("rarity=%v", o.Rarity())
	}

	_, ok, err = NewPG(storetest.New()).OreType(ctx, 1)
	if err != nil || ok {
		t.Fatalf("missing ore type: ok=%v err=%v", ok, err)
	}
}

func TestPG_Price(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := storetest.New().On("FROM ore_prices", storetest.Result{Rows: [][]any{{1250.5}}})
	p, ok, err := NewPG(db).Price(ctx, 45490)
	if err != nil || !ok || p != 1250.5 {
		t.Fatalf("price=%v ok=%v err=%v", p, ok, err)
	}

	null := storetest.New().On("FROM ore_prices", storetest.Result{Rows: [][]any{{nil}}})
	if _, ok, err := NewPG(null).Price(ctx, 45490); ok || err != nil {
		t.Fatalf("null price should be missing, ok=%v err=%v", ok, err)
	}

	failing := storetest.New().On("FROM ore_prices", storetest.Result{Err: errors.New("conn reset")})
	_, _, err = NewPG(failing).Price(ctx, 45490)
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestPG_Writes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := storetest.New()
	pg := NewPG(db)

	testkit.MustNoErr(t, pg.PutOreType(ctx, valuation.OreType{ID: 1, Name: "x", GroupID: 1884, UnitVolume: 10, Quality: valuation.QualityExcellent}), "PutOreType")
	calls := db.CallsMatching("INSERT INTO ore_types")
	if len(calls) != 1 || calls[0].Args[4] != "EX" {
		t.Fatalf("calls=%+v", calls)
	}
	testkit.MustNoErr(t, pg.PutPrice(ctx, 1, testkit.Ptr(3.0)), "PutPrice")
	testkit.MustNoErr(t, Migrate(ctx, db), "Migrate")
	if len(db.CallsMatching("CREATE TABLE IF NOT EXISTS ore_prices")) != 1 {
		t.Fatalf("schema not applied")
	}
}
