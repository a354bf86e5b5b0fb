package services

import (
	"time"

	"planner/internal/core"
)

// SkipReason explains why CheckAndGenerate emitted nothing. It is a normal
// outcome, not an error.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipInactive  SkipReason = "inactive"
	SkipNotDue    SkipReason = "not_due"
	SkipExhausted SkipReason = "exhausted"
	SkipPastEnd   SkipReason = "past_end"
)

// GenerationResult is the intent produced by CheckAndGenerate. The caller
// persists NewEntry (when set) and Updated.
type GenerationResult struct {
	NewEntry *core.LedgerEntry
	Updated  core.Obligation
	DueDate  core.Date
	Skip     SkipReason
	// Reconciled is set when an entry for the due date already existed and
	// only the obligation's progress was advanced over it.
	Reconciled bool
}

// Generated reports whether a new ledger entry was emitted.
func (r GenerationResult) Generated() bool {
	return r.NewEntry != nil
}

// CheckAndGenerate decides whether ob is due at now and, if so, returns the
// pending ledger entry to create together with the advanced obligation.
//
// It performs no I/O. Calling it again with the persisted result and the
// same now is a no-op: either the obligation is no longer due or the
// duplicate guard finds the entry in existing.
func CheckAndGenerate(now time.Time, ob core.Obligation, existing []core.LedgerEntry) (GenerationResult, error) {
	res := GenerationResult{Updated: ob}

	if ob.Status != core.StatusActive {
		res.Skip = SkipInactive
		return res, nil
	}
	if err := ob.Validate(); err != nil {
		return res, err
	}

	if ob.Kind == core.KindInstallment && ob.CompletedInstallments >= ob.TotalInstallments {
		res.Updated.Status = core.StatusCompleted
		res.Updated.UpdatedAt = now
		res.Skip = SkipExhausted
		return res, nil
	}

	due, err := NextDueDate(ob)
	if err != nil {
		return res, core.NewValidationError("frequency", "%v", err)
	}
	res.DueDate = due

	if ob.Kind == core.KindRecurring && ob.HasEnd() && due.After(ob.EndDate) {
		res.Updated.Status = core.StatusCompleted
		res.Updated.UpdatedAt = now
		res.Skip = SkipPastEnd
		return res, nil
	}

	if due.After(core.DateOf(now)) {
		res.Skip = SkipNotDue
		return res, nil
	}

	if hasEntryFor(existing, ob.ID, due) {
		res.Reconciled = true
	} else {
		entry := newPendingEntry(ob, due, now)
		res.NewEntry = &entry
	}

	updated, err := advance(ob, due)
	if err != nil {
		return GenerationResult{Updated: ob}, core.NewValidationError("frequency", "%v", err)
	}
	updated.UpdatedAt = now
	res.Updated = updated
	return res, nil
}

func hasEntryFor(existing []core.LedgerEntry, obligationID string, due core.Date) bool {
	for _, e := range existing {
		if e.ObligationID == obligationID && e.Date.Equal(due) {
			return true
		}
	}
	return false
}

func newPendingEntry(ob core.Obligation, due core.Date, now time.Time) core.LedgerEntry {
	category := ob.Category
	if category == "" {
		category = core.CategoryExpense
	}
	return core.LedgerEntry{
		AccountID:    ob.AccountID,
		Category:     category,
		Date:         due,
		Amount:       ob.Amount,
		Description:  ob.Name,
		Status:       core.LedgerPending,
		ObligationID: ob.ID,
		CreatedAt:    now,
	}
}

// advance moves progress past the occurrence due on due and applies the
// completion rules of each kind.
func advance(ob core.Obligation, due core.Date) (core.Obligation, error) {
	switch ob.Kind {
	case core.KindInstallment:
		ob.CompletedInstallments++
		if ob.CompletedInstallments >= ob.TotalInstallments {
			ob.CompletedInstallments = ob.TotalInstallments
			ob.Status = core.StatusCompleted
		}
	case core.KindRecurring:
		next, err := followingDueDate(ob, due)
		if err != nil {
			return ob, err
		}
		if ob.HasEnd() && next.After(ob.EndDate) {
			ob.NextDueDate = ob.EndDate
			ob.Status = core.StatusCompleted
		} else {
			ob.NextDueDate = next
		}
	}
	return ob, nil
}
