package main

import (
	"context"
	"io"
	"os"
	"sort"

	"moonmining/internal/core/valuation"
	perr "moonmining/internal/platform/errors"

	"gopkg.in/yaml.v3"
)

type catalogueOreType struct {
	ID      int64   `yaml:"id"`
	Name    string  `yaml:"name"`
	GroupID int64   `yaml:"group_id"`
	Volume  float64 `yaml:"volume"`
	Quality string  `yaml:"quality"`
}

// catalogueFile is a snapshot of ore types and prices; a null price clears it
type catalogueFile struct {
	OreTypes []catalogueOreType `yaml:"ore_types"`
	Prices   map[int64]*float64 `yaml:"prices"`
}

type catalogueWriter interface {
	PutOreType(ctx context.Context, o valuation.OreType) error
	PutPrice(ctx context.Context, oreTypeID int64, price *float64) error
}

type priceInvalidator interface {
	Invalidate(ctx context.Context, ids ...int64) error
}

func readCatalogue(path string) (catalogueFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalogueFile{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open catalogue %s", path)
	}
	defer func() { _ = f.Close() }()
	return decodeCatalogue(f)
}

func decodeCatalogue(r io.Reader) (catalogueFile, error) {
	var c catalogueFile
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && err != io.EOF {
		return c, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode catalogue")
	}
	for _, o := range c.OreTypes {
		if o.ID <= 0 || o.Volume <= 0 {
			return c, perr.InvalidArgf("ore type %d needs an id and a positive volume", o.ID)
		}
	}
	return c, nil
}

// importCatalogue writes ore types and prices, then drops the cached prices it replaced
func importCatalogue(ctx context.Context, w catalogueWriter, cache priceInvalidator, c catalogueFile) (int, error) {
	for _, o := range c.OreTypes {
		err := w.PutOreType(ctx, valuation.OreType{
			ID:         o.ID,
			Name:       o.Name,
			GroupID:    o.GroupID,
			UnitVolume: o.Volume,
			Quality:    valuation.ParseQualityCode(o.Quality),
		})
		if err != nil {
			return 0, err
		}
	}

	ids := make([]int64, 0, len(c.Prices))
	for id := range c.Prices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := w.PutPrice(ctx, id, c.Prices[id]); err != nil {
			return 0, err
		}
	}
	if err := cache.Invalidate(ctx, ids...); err != nil {
		return len(ids), perr.Wrap(err, perr.ErrorCodeUnavailable, "invalidate cached prices")
	}
	return len(ids), nil
}
