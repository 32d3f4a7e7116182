// Package domain defines the types and ports of the moons service
package domain

import (
	"time"

	"moonmining/internal/core/valuation"
)

// Refinery is a structure of an owner, with its moon once known
type Refinery struct {
	ID      int64
	OwnerID int64
	MoonID  *int64
}

// Moon is a known moon with its product composition and valuation
type Moon struct {
	ID                int64
	Value             *float64
	Rarity            valuation.RarityClass
	Products          []valuation.MoonProduct
	ProductsUpdatedAt *time.Time
}
