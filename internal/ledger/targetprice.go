package ledger

import (
	"github.com/rs/zerolog/log"
)

// CalculateTargetPrice computes the commission-adjusted take-profit price
// for a buy. The commission is applied by dividing the gross target by
// (1 - rate) rather than multiplying: the configured target percent is
// then realized net of commission on the sell leg.
//
// A commission rate of 100% or more cannot be adjusted for (the divisor
// hits zero or flips sign); the gross target is returned unadjusted and a
// warning is logged.
//
// The result is rounded to 4 decimal places so prices derived from the
// same inputs always key the same wallet bucket.
func CalculateTargetPrice(buyPrice, targetPercent float64, commissionPercent *float64) float64 {
	base := buyPrice * (1 + targetPercent/100)
	if commissionPercent != nil && *commissionPercent > 0 {
		rate := *commissionPercent / 100
		if rate >= 1 {
			log.Warn().
				Float64("commission_percent", *commissionPercent).
				Float64("buy_price", buyPrice).
				Msg("degenerate commission rate, returning unadjusted target")
			return RoundPrice(base)
		}
		base = base / (1 - rate)
	}
	return RoundPrice(base)
}
