package ledger

import (
	"time"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
)

// CumulativeSplitFactor returns the product of the ratios of every split
// dated strictly after asOf. Splits that happen after a point in time
// inflate that moment's share counts and deflate its prices when viewed
// from today.
func CumulativeSplitFactor(splits []models.SplitEvent, asOf time.Time) float64 {
	factor := 1.0
	for _, s := range splits {
		if s.Date.After(asOf) {
			factor *= s.Ratio
		}
	}
	return factor
}

// SplitAdjusted returns a copy of txn with price and quantity normalized
// to today's post-split scale. The stored transaction is never mutated;
// this view exists for display and for realized P/L on sells whose
// matched buy predates a split.
func SplitAdjusted(txn models.Transaction, splits []models.SplitEvent) models.Transaction {
	factor := CumulativeSplitFactor(splits, txn.Date)
	if factor == 1 {
		return txn
	}
	if txn.Quantity != nil {
		q := RoundShares(*txn.Quantity * factor)
		txn.Quantity = &q
	}
	if txn.Price != nil {
		p := RoundPrice(*txn.Price / factor)
		txn.Price = &p
	}
	return txn
}

// SplitEventsFromTransactions extracts the split events out of a mixed
// transaction history, for use with the helpers above.
func SplitEventsFromTransactions(txns []models.Transaction) []models.SplitEvent {
	var splits []models.SplitEvent
	for _, t := range txns {
		if t.Action == models.ActionStockSplit && t.SplitRatio != nil {
			splits = append(splits, models.SplitEvent{Date: t.Date, Ratio: *t.SplitRatio})
		}
	}
	return splits
}
