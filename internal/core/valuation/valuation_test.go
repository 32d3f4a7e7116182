package valuation

import (
	"context"
	"errors"
	"math"
	"testing"

	"moonmining/internal/core/extraction"
)

type fakeCatalogue struct {
	types  map[int64]OreType
	prices map[int64]float64
	err    error
}

func (f fakeCatalogue) OreType(_ context.Context, id int64) (OreType, bool, error) {
	if f.err != nil {
		return OreType{}, false, f.err
	}
	ot, ok := f.types[id]
	return ot, ok, nil
}

func (f fakeCatalogue) Price(_ context.Context, id int64) (float64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	p, ok := f.prices[id]
	return p, ok, nil
}

const (
	bitumens     int64 = 45492 // R4 regular
	copiousCob   int64 = 46676 // R16 improved
	glisteningXe int64 = 46687 // R64 excellent
	shiningXe    int64 = 46688 // R64 excellent
)

var cat = fakeCatalogue{
	types: map[int64]OreType{
		bitumens:     {ID: bitumens, GroupID: GroupUbiquitousMoonAsteroids, UnitVolume: 10, Quality: QualityRegular},
		copiousCob:   {ID: copiousCob, GroupID: GroupUncommonMoonAsteroids, UnitVolume: 10, Quality: QualityImproved},
		glisteningXe: {ID: glisteningXe, GroupID: GroupExceptionalMoonAsteroids, UnitVolume: 10, Quality: QualityExcellent},
		shiningXe:    {ID: shiningXe, GroupID: GroupExceptionalMoonAsteroids, UnitVolume: 10, Quality: QualityExcellent},
	},
	prices: map[int64]float64{bitumens: 100, copiousCob: 1000, glisteningXe: 0},
}

func TestCalcValue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	v, err := CalcValue(ctx, []extraction.Product{{OreTypeID: bitumens, Volume: 1000}, {OreTypeID: copiousCob, Volume: 500}}, cat)
	if err != nil || v == nil || *v != 100*100+1000*50 {
		t.Fatalf("CalcValue = %v, %v", v, err)
	}

	// missing price and unknown ore contribute zero, the sum stays resolvable
	v, err = CalcValue(ctx, []extraction.Product{{OreTypeID: shiningXe, Volume: 10}, {OreTypeID: 1, Volume: 10}}, cat)
	if err != nil || v == nil || *v != 0 {
		t.Fatalf("CalcValue with missing prices = %v, %v", v, err)
	}

	v, err = CalcValue(ctx, nil, cat)
	if err != nil || v != nil {
		t.Fatalf("CalcValue(empty) = %v, %v, want nil", v, err)
	}

	if _, err := CalcValue(ctx, []extraction.Product{{OreTypeID: bitumens, Volume: 1}}, fakeCatalogue{err: errors.New("down")}); err == nil {
		t.Fatalf("catalogue failures must propagate")
	}
}

func TestCalcIsJackpot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, err := CalcIsJackpot(ctx, nil, cat)
	if err != nil || j != nil {
		t.Fatalf("empty products must give nil, got %v", j)
	}

	j, _ = CalcIsJackpot(ctx, []extraction.Product{{OreTypeID: glisteningXe, Volume: 1}, {OreTypeID: shiningXe, Volume: 1}}, cat)
	if j == nil || !*j {
		t.Fatalf("all excellent should be a jackpot")
	}

	j, _ = CalcIsJackpot(ctx, []extraction.Product{{OreTypeID: glisteningXe, Volume: 1}, {OreTypeID: copiousCob, Volume: 1}}, cat)
	if j == nil || *j {
		t.Fatalf("mixed quality is not a jackpot")
	}

	j, _ = CalcIsJackpot(ctx, []extraction.Product{{OreTypeID: 999, Volume: 1}}, cat)
	if j == nil || *j {
		t.Fatalf("unknown ore degrades to not-a-jackpot")
	}
}

func TestCalcRarityClass(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r, err := CalcRarityClass(ctx, []extraction.Product{{OreTypeID: bitumens}, {OreTypeID: glisteningXe}, {OreTypeID: copiousCob}}, cat)
	if err != nil || r != RarityR64 {
		t.Fatalf("rarity = %v, %v", r, err)
	}
	if r, _ := CalcRarityClass(ctx, nil, cat); r != RarityNone {
		t.Fatalf("no products should be RarityNone")
	}
	if r, _ := CalcRarityClass(ctx, []extraction.Product{{OreTypeID: 999}}, cat); r != RarityNone {
		t.Fatalf("unknown ore should be RarityNone")
	}
}

func TestClassMappings(t *testing.T) {
	t.Parallel()

	groups := map[int64]RarityClass{1884: RarityR4, 1920: RarityR8, 1921: RarityR16, 1922: RarityR32, 1923: RarityR64, 462: RarityNone}
	for g, want := range groups {
		if got := RarityFromGroup(g); got != want {
			t.Fatalf("RarityFromGroup(%d) = %v, want %v", g, got, want)
		}
	}
	dogma := map[float64]QualityClass{1: QualityRegular, 3: QualityImproved, 5: QualityExcellent, 2: QualityUndefined}
	for v, want := range dogma {
		if got := QualityFromDogma(v); got != want {
			t.Fatalf("QualityFromDogma(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestMoonValue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var x extraction.CalculatedExtraction
	x.ReplaceProducts(extraction.OreVolumes{bitumens: 750, copiousCob: 250})
	amounts := MoonProductsFrom(x)
	if len(amounts) != 2 || amounts[0].Amount != 0.75 {
		t.Fatalf("amounts = %+v", amounts)
	}

	v, err := CalcMoonValue(ctx, amounts, cat, 1000)
	want := 100*(0.75*1000)/10 + 1000*(0.25*1000)/10
	if err != nil || v == nil || math.Abs(*v-want) > 1e-9 {
		t.Fatalf("CalcMoonValue = %v, want %v", v, want)
	}
	if r, _ := CalcMoonRarityClass(ctx, amounts, cat); r != RarityR16 {
		t.Fatalf("moon rarity = %v", r)
	}
	if MoonProductsFrom(extraction.CalculatedExtraction{}) != nil {
		t.Fatalf("no volume means no moon products")
	}
}
