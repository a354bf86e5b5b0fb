package core

import "strings"

const (
	BucketPending BucketStatus = "pending"
	BucketPaid    BucketStatus = "paid"
)

type (
	BucketStatus string

	// Bucket is a named spending category a month's funds are split into.
	Bucket struct {
		ID            string
		Name          string
		DefaultStatus BucketStatus
	}

	// BucketCatalogue maps bucket ids to their definitions.
	BucketCatalogue map[string]Bucket

	// PlannedMonth is the planning snapshot for one month.
	PlannedMonth struct {
		ID                string
		MonthStart        Date
		InflowTotal       *Money
		FixedFactor       *float64
		BucketOrder       []string
		StatusByBucket    map[string]BucketStatus
		DueDates          map[string]Date
		Accounts          []AccountAllocation
		ManualAdjustments []ManualAdjustment
	}

	// AccountAllocation is one account's share of a planned month.
	// RemainingCash is derived and recomputed on every relevant mutation.
	AccountAllocation struct {
		ID              string
		AccountID       string
		FixedBalance    *Money
		SavingsTransfer *Money
		BucketAmounts   map[string]*Money
		RemainingCash   Money
	}

	ManualAdjustment struct {
		ID          string
		Description string
		Amount      Money // signed
		AccountID   string
		BucketID    string
	}

	// BucketTotals splits per-bucket sums by resolved status.
	BucketTotals struct {
		Pending map[string]Money
		Paid    map[string]Money
		All     map[string]Money
	}

	// OverrideKey identifies a past-due amount that was deliberately
	// re-enabled. EntityID is an account id or a bucket id.
	OverrideKey struct {
		EntityID string
		Date     Date
	}

	OverrideSet map[OverrideKey]struct{}
)

func (s BucketStatus) Valid() bool {
	return s == BucketPending || s == BucketPaid
}

// ParseBucketStatus accepts the status spellings found in planner exports
// ("Pending", "paid", ...).
func ParseBucketStatus(s string) (BucketStatus, bool) {
	st := BucketStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// DefaultStatus returns the catalogue default for bucketID, or pending for
// buckets the catalogue does not know.
func (c BucketCatalogue) DefaultStatus(bucketID string) BucketStatus {
	if b, ok := c[bucketID]; ok && b.DefaultStatus.Valid() {
		return b.DefaultStatus
	}
	return BucketPending
}

// ResolveStatus returns the effective status of bucketID in m.
func (m PlannedMonth) ResolveStatus(bucketID string, catalogue BucketCatalogue) BucketStatus {
	if st, ok := m.StatusByBucket[bucketID]; ok && st.Valid() {
		return st
	}
	return catalogue.DefaultStatus(bucketID)
}

// Allocation returns the allocation with the given id.
func (m *PlannedMonth) Allocation(id string) (*AccountAllocation, bool) {
	for i := range m.Accounts {
		if m.Accounts[i].ID == id {
			return &m.Accounts[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can mutate without aliasing a stored
// snapshot.
func (m PlannedMonth) Clone() PlannedMonth {
	out := m
	if m.InflowTotal != nil {
		out.InflowTotal = m.InflowTotal.Ptr()
	}
	if m.FixedFactor != nil {
		f := *m.FixedFactor
		out.FixedFactor = &f
	}
	out.BucketOrder = append([]string(nil), m.BucketOrder...)
	out.StatusByBucket = m.CloneStatuses()
	if m.DueDates != nil {
		out.DueDates = make(map[string]Date, len(m.DueDates))
		for k, v := range m.DueDates {
			out.DueDates[k] = v
		}
	}
	out.Accounts = make([]AccountAllocation, len(m.Accounts))
	for i, a := range m.Accounts {
		out.Accounts[i] = a.Clone()
	}
	out.ManualAdjustments = append([]ManualAdjustment(nil), m.ManualAdjustments...)
	return out
}

// CloneStatuses copies the status map.
func (m PlannedMonth) CloneStatuses() map[string]BucketStatus {
	out := make(map[string]BucketStatus, len(m.StatusByBucket))
	for k, v := range m.StatusByBucket {
		out[k] = v
	}
	return out
}

func (a AccountAllocation) Clone() AccountAllocation {
	out := a
	if a.FixedBalance != nil {
		out.FixedBalance = a.FixedBalance.Ptr()
	}
	if a.SavingsTransfer != nil {
		out.SavingsTransfer = a.SavingsTransfer.Ptr()
	}
	if a.BucketAmounts != nil {
		out.BucketAmounts = make(map[string]*Money, len(a.BucketAmounts))
		for k, v := range a.BucketAmounts {
			if v == nil {
				out.BucketAmounts[k] = nil
				continue
			}
			out.BucketAmounts[k] = v.Ptr()
		}
	}
	return out
}

func (m PlannedMonth) Validate() error {
	if err := m.MonthStart.Validate(); err != nil {
		return NewValidationError("month_start", "%v", err)
	}
	for bucket, st := range m.StatusByBucket {
		if !st.Valid() {
			return NewValidationError("status_by_bucket", "bucket %q has unknown status %q", bucket, st)
		}
	}
	seen := make(map[string]struct{}, len(m.Accounts))
	for _, a := range m.Accounts {
		if a.AccountID == "" {
			return NewValidationError("accounts", "allocation %q has no account", a.ID)
		}
		if _, dup := seen[a.ID]; dup {
			return NewValidationError("accounts", "duplicate allocation id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// NewBucketTotals returns empty totals.
func NewBucketTotals() BucketTotals {
	return BucketTotals{
		Pending: map[string]Money{},
		Paid:    map[string]Money{},
		All:     map[string]Money{},
	}
}

// Has reports whether k is in the set.
func (s OverrideSet) Has(k OverrideKey) bool {
	_, ok := s[k]
	return ok
}

// NewOverrideSet builds a set from keys.
func NewOverrideSet(keys ...OverrideKey) OverrideSet {
	s := make(OverrideSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}
