// Package ports declares the storage collaborators the planning engine
// depends on. Implementations live in internal/memory and internal/storage.
package ports

import (
	"context"

	"planner/internal/core"
)

type (
	// LedgerStore holds dated ledger entries. Entries created on behalf of an
	// obligation carry its id so generation can detect duplicates.
	LedgerStore interface {
		Create(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
		ListByAccount(ctx context.Context, accountID string) ([]core.LedgerEntry, error)
		ListByObligation(ctx context.Context, obligationID string) ([]core.LedgerEntry, error)
		// FindByObligationAndDate returns the entry generated for obligationID
		// on date, if any.
		FindByObligationAndDate(ctx context.Context, obligationID string, date core.Date) (*core.LedgerEntry, error)
		CountByObligation(ctx context.Context, obligationID string) (int, error)
	}

	// AccountDirectory resolves account ids for referential validation.
	AccountDirectory interface {
		// Resolve returns core.ErrNotFound when the account does not exist.
		Resolve(ctx context.Context, accountID string) (core.Account, error)
		List(ctx context.Context) ([]core.Account, error)
		Create(ctx context.Context, a core.Account) (core.Account, error)
		FindByName(ctx context.Context, name string) (core.Account, error)
	}

	ObligationStore interface {
		Save(ctx context.Context, o core.Obligation) error
		Get(ctx context.Context, id string) (core.Obligation, error)
		List(ctx context.Context) ([]core.Obligation, error)
		Delete(ctx context.Context, id string) error
	}

	// PlannedMonthStore persists whole snapshots; there is no partial delete.
	PlannedMonthStore interface {
		Save(ctx context.Context, m core.PlannedMonth) error
		Get(ctx context.Context, id string) (core.PlannedMonth, error)
		GetByMonthStart(ctx context.Context, monthStart core.Date) (core.PlannedMonth, error)
		List(ctx context.Context) ([]core.PlannedMonth, error)
		Delete(ctx context.Context, id string) error
	}

	// OverrideStore persists due-date overrides, the only durable state of
	// the due-date policy.
	OverrideStore interface {
		Add(ctx context.Context, k core.OverrideKey) error
		Remove(ctx context.Context, k core.OverrideKey) error
		List(ctx context.Context) ([]core.OverrideKey, error)
	}
)

// Stores bundles every collaborator a backend provides.
type Stores struct {
	Ledger      LedgerStore
	Accounts    AccountDirectory
	Obligations ObligationStore
	Months      PlannedMonthStore
	Overrides   OverrideStore
}
