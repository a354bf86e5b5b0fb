package services

import (
	"planner/internal/core"
)

// BucketTotals sums every non-nil bucket amount of every allocation into
// all, and into pending or paid by the bucket's resolved status. Amounts
// are integer cents so the sums need no further rounding and
// all[b] == pending[b] + paid[b] holds for every bucket.
func BucketTotals(m core.PlannedMonth, catalogue core.BucketCatalogue) core.BucketTotals {
	return bucketTotals(m, catalogue, func(_ core.AccountAllocation, _ string, v core.Money) core.Money {
		return v
	})
}

// EffectiveBucketTotals is BucketTotals with the due-date policy applied to
// each amount. A bucket's due date comes from m.DueDates; an override may
// name either the allocation's account or the bucket.
func EffectiveBucketTotals(m core.PlannedMonth, catalogue core.BucketCatalogue, today core.Date, overrides core.OverrideSet) core.BucketTotals {
	return bucketTotals(m, catalogue, func(a core.AccountAllocation, bucket string, v core.Money) core.Money {
		due, ok := m.DueDates[bucket]
		if !ok || due.IsZero() {
			return v
		}
		if overrides.Has(core.OverrideKey{EntityID: a.AccountID, Date: due}) {
			return v
		}
		return EffectiveAmount(v, &due, today, bucket, overrides)
	})
}

func bucketTotals(m core.PlannedMonth, catalogue core.BucketCatalogue, value func(core.AccountAllocation, string, core.Money) core.Money) core.BucketTotals {
	totals := core.NewBucketTotals()
	for _, a := range m.Accounts {
		for bucket, amount := range a.BucketAmounts {
			if amount == nil {
				continue
			}
			v := value(a, bucket, *amount)
			totals.All[bucket] = totals.All[bucket].Add(v)
			switch m.ResolveStatus(bucket, catalogue) {
			case core.BucketPaid:
				totals.Paid[bucket] = totals.Paid[bucket].Add(v)
			default:
				totals.Pending[bucket] = totals.Pending[bucket].Add(v)
			}
		}
	}
	return totals
}

// RemainingCash computes inflow minus the fixed balances and savings
// transfers of accountID's allocations, plus the manual adjustments scoped
// to accountID. Unset values count as zero.
func RemainingCash(m core.PlannedMonth, accountID string) core.Money {
	cash := core.OrZero(m.InflowTotal)
	for _, a := range m.Accounts {
		if a.AccountID != accountID {
			continue
		}
		cash = cash.Sub(core.OrZero(a.FixedBalance)).Sub(core.OrZero(a.SavingsTransfer))
	}
	for _, adj := range m.ManualAdjustments {
		if adj.AccountID == accountID {
			cash = cash.Add(adj.Amount)
		}
	}
	return cash
}

// RecomputeRemainingCash refreshes the cached RemainingCash of every
// allocation in m.
func RecomputeRemainingCash(m *core.PlannedMonth) {
	for i := range m.Accounts {
		m.Accounts[i].RemainingCash = RemainingCash(*m, m.Accounts[i].AccountID)
	}
}
