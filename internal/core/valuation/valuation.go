// Package valuation prices extraction and moon compositions and classifies their ores
package valuation

import (
	"context"

	"moonmining/internal/core/extraction"
)

// VolumePerMonth is the ore volume a moon yields in roughly 30 days of continuous extractions
const VolumePerMonth = 14_557_923.0

// RarityClass of an ore, its value is the R number
type RarityClass int

const (
	RarityNone RarityClass = 0
	RarityR4   RarityClass = 4
	RarityR8   RarityClass = 8
	RarityR16  RarityClass = 16
	RarityR32  RarityClass = 32
	RarityR64  RarityClass = 64
)

// Moon asteroid group ids
const (
	GroupUbiquitousMoonAsteroids  int64 = 1884
	GroupCommonMoonAsteroids      int64 = 1920
	GroupUncommonMoonAsteroids    int64 = 1921
	GroupRareMoonAsteroids        int64 = 1922
	GroupExceptionalMoonAsteroids int64 = 1923
)

// RarityFromGroup maps an ore group id to its rarity; anything else is RarityNone
func RarityFromGroup(groupID int64) RarityClass {
	switch groupID {
	case GroupUbiquitousMoonAsteroids:
		return RarityR4
	case GroupCommonMoonAsteroids:
		return RarityR8
	case GroupUncommonMoonAsteroids:
		return RarityR16
	case GroupRareMoonAsteroids:
		return RarityR32
	case GroupExceptionalMoonAsteroids:
		return RarityR64
	}
	return RarityNone
}

// QualityClass of an ore variant
type QualityClass uint8

const (
	QualityUndefined QualityClass = iota
	QualityRegular
	QualityImproved
	QualityExcellent
)

// QualityFromDogma maps the ore quality dogma attribute value to a class
func QualityFromDogma(value float64) QualityClass {
	switch int(value) {
	case 1:
		return QualityRegular
	case 3:
		return QualityImproved
	case 5:
		return QualityExcellent
	}
	return QualityUndefined
}

// Code is the two letter code persisted in the store
func (q QualityClass) Code() string {
	switch q {
	case QualityRegular:
		return "RE"
	case QualityImproved:
		return "IM"
	case QualityExcellent:
		return "EX"
	}
	return "UN"
}

// ParseQualityCode is the inverse of Code; unknown codes are Undefined
func ParseQualityCode(code string) QualityClass {
	switch code {
	case "RE":
		return QualityRegular
	case "IM":
		return QualityImproved
	case "EX":
		return QualityExcellent
	}
	return QualityUndefined
}

// OreType is the catalogue data valuation needs for one ore
type OreType struct {
	ID         int64
	Name       string
	GroupID    int64
	UnitVolume float64 // m3 per unit
	Quality    QualityClass
}

// Rarity of the ore derived from its group
func (o OreType) Rarity() RarityClass { return RarityFromGroup(o.GroupID) }

// Catalogue looks up ore metadata and prices.
// A missing entry is ok=false with a nil error; errors are reserved for lookup failures
type Catalogue interface {
	OreType(ctx context.Context, id int64) (OreType, bool, error)
	Price(ctx context.Context, id int64) (float64, bool, error)
}

// CalcValue is the sum over products of price x units (volume / unit volume).
// A product without a price or ore metadata contributes 0. The result is nil only for an empty product list
func CalcValue(ctx context.Context, products []extraction.Product, cat Catalogue) (*float64, error) {
	if len(products) == 0 {
		return nil, nil
	}
	var total float64
	for _, p := range products {
		v, err := unitsValue(ctx, cat, p.OreTypeID, p.Volume)
		if err != nil {
			return nil, err
		}
		total += v
	}
	return &total, nil
}

// CalcIsJackpot reports whether every product is of excellent quality; nil without products
func CalcIsJackpot(ctx context.Context, products []extraction.Product, cat Catalogue) (*bool, error) {
	if len(products) == 0 {
		return nil, nil
	}
	jackpot := true
	for _, p := range products {
		ot, ok, err := cat.OreType(ctx, p.OreTypeID)
		if err != nil {
			return nil, err
		}
		if !ok || ot.Quality != QualityExcellent {
			jackpot = false
			break
		}
	}
	return &jackpot, nil
}

// CalcRarityClass is the highest rarity among the products, RarityNone without products
func CalcRarityClass(ctx context.Context, products []extraction.Product, cat Catalogue) (RarityClass, error) {
	best := RarityNone
	for _, p := range products {
		ot, ok, err := cat.OreType(ctx, p.OreTypeID)
		if err != nil {
			return RarityNone, err
		}
		if ok && ot.Rarity() > best {
			best = ot.Rarity()
		}
	}
	return best, nil
}

// MoonProduct is one ore of a moon with its share of the total volume (0..1)
type MoonProduct struct {
	OreTypeID int64
	Amount    float64
}

// MoonProductsFrom normalizes extraction volumes into shares; nil when the total volume is zero
func MoonProductsFrom(x extraction.CalculatedExtraction) []MoonProduct {
	total := x.TotalVolume()
	if total <= 0 {
		return nil
	}
	out := make([]MoonProduct, 0, len(x.Products))
	for _, p := range x.Products {
		out = append(out, MoonProduct{OreTypeID: p.OreTypeID, Amount: p.Volume / total})
	}
	return out
}

// CalcMoonValue prices volumePerMonth of ore split by amounts; nil without products
func CalcMoonValue(ctx context.Context, amounts []MoonProduct, cat Catalogue, volumePerMonth float64) (*float64, error) {
	if len(amounts) == 0 {
		return nil, nil
	}
	var total float64
	for _, a := range amounts {
		v, err := unitsValue(ctx, cat, a.OreTypeID, a.Amount*volumePerMonth)
		if err != nil {
			return nil, err
		}
		total += v
	}
	return &total, nil
}

// CalcMoonRarityClass is CalcRarityClass over moon products
func CalcMoonRarityClass(ctx context.Context, amounts []MoonProduct, cat Catalogue) (RarityClass, error) {
	products := make([]extraction.Product, len(amounts))
	for i, a := range amounts {
		products[i] = extraction.Product{OreTypeID: a.OreTypeID, Volume: a.Amount}
	}
	return CalcRarityClass(ctx, products, cat)
}

func unitsValue(ctx context.Context, cat Catalogue, oreID int64, volume float64) (float64, error) {
	price, ok, err := cat.Price(ctx, oreID)
	if err != nil {
		return 0, err
	}
	if !ok || price == 0 {
		return 0, nil
	}
	ot, ok, err := cat.OreType(ctx, oreID)
	if err != nil {
		return 0, err
	}
	if !ok || ot.UnitVolume <= 0 {
		return 0, nil
	}
	return price * volume / ot.UnitVolume, nil
}
