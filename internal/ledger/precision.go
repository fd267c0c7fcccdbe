// Package ledger implements the position ledger engine: price-bucketed
// cost-basis wallets, stock split rescaling, and chronological cash-flow
// replay over an asset's transaction history.
package ledger

import (
	"math"

	"github.com/shopspring/decimal"
)

// Decimal places per quantity kind. Share quantities carry five places,
// currency two, prices four (price values key wallet buckets, so their
// rounding must be stable), percentages two.
const (
	SharePrecision    = 5
	CurrencyPrecision = 2
	PricePrecision    = 4
	PercentPrecision  = 2
)

// Epsilons for zero/equality checks. Anything smaller is noise left over
// from float arithmetic, not a real position.
const (
	ShareEpsilon    = 1e-4
	CurrencyEpsilon = 1e-2
	PriceEpsilon    = 1e-4
)

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundShares rounds a share quantity to 5 decimal places.
func RoundShares(v float64) float64 { return round(v, SharePrecision) }

// RoundCurrency rounds a dollar amount to 2 decimal places.
func RoundCurrency(v float64) float64 { return round(v, CurrencyPrecision) }

// RoundPrice rounds a per-share price to 4 decimal places.
func RoundPrice(v float64) float64 { return round(v, PricePrecision) }

// RoundPercent rounds a percentage to 2 decimal places.
func RoundPercent(v float64) float64 { return round(v, PercentPrecision) }

// IsZero reports whether v is within eps of zero.
func IsZero(v, eps float64) bool { return math.Abs(v) < eps }

// NearlyEqual reports whether a and b differ by less than eps.
func NearlyEqual(a, b, eps float64) bool { return math.Abs(a-b) < eps }
