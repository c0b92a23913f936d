// Package report derives the dashboard's month-bucketed sums from fetched
// collections. Each derivation is a single pass; nothing is updated
// incrementally.
package report

import "github.com/jkoblar/garrison/internal/model"

// Months is the number of buckets in a monthly series (index 0 = January).
const Months = 12

// MonthlyPurchaseTotals sums purchase quantities into month buckets for the
// given calendar year. Purchases from other years are ignored.
func MonthlyPurchaseTotals(purchases []model.Purchase, year int) [Months]int {
	var totals [Months]int
	for _, p := range purchases {
		if p.Date.IsZero() || p.Date.Year() != year {
			continue
		}
		totals[int(p.Date.Month())-1] += p.Quantity
	}
	return totals
}

// MonthlyTransferFlow sums transfer quantities into per-month "in" buckets
// (destination is baseID) and "out" buckets (source is baseID). The two
// accumulate independently; a transfer matching neither side is skipped.
func MonthlyTransferFlow(transfers []model.Transfer, baseID int64) (in, out [Months]int) {
	for _, t := range transfers {
		if t.Timestamp.IsZero() {
			continue
		}
		month := int(t.Timestamp.Month()) - 1
		if t.ToBaseID == baseID {
			in[month] += t.Quantity
		}
		if t.FromBaseID == baseID {
			out[month] += t.Quantity
		}
	}
	return in, out
}

// Sum totals a monthly series, for the dashboard summary cards.
func Sum(series [Months]int) int {
	total := 0
	for _, v := range series {
		total += v
	}
	return total
}

// Max returns the largest bucket, used to scale chart bars. Never below 1 so
// templates can divide by it.
func Max(series ...[Months]int) int {
	max := 1
	for _, s := range series {
		for _, v := range s {
			if v > max {
				max = v
			}
		}
	}
	return max
}
