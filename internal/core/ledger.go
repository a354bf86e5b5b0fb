package core

import "time"

const (
	CategoryIncome  LedgerCategory = "income"
	CategoryExpense LedgerCategory = "expense"
	CategorySavings LedgerCategory = "savings"
)

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerPaid      LedgerStatus = "paid"
	LedgerReceived  LedgerStatus = "received"
	LedgerCompleted LedgerStatus = "completed"
)

type (
	LedgerCategory string

	// LedgerStatus is the settlement state of a ledger entry. Which values
	// are legal depends on the entry's category, see ValidFor.
	LedgerStatus string

	LedgerEntry struct {
		ID           string
		AccountID    string
		Category     LedgerCategory
		Date         Date
		Amount       Money
		Description  string
		Status       LedgerStatus
		ObligationID string // empty when entered by hand
		CreatedAt    time.Time
	}

	Account struct {
		ID       string
		Name     string
		BankName string
	}
)

func (c LedgerCategory) Valid() bool {
	switch c {
	case CategoryIncome, CategoryExpense, CategorySavings:
		return true
	default:
		return false
	}
}

// SettledStatus is the terminal status for entries of category c.
func (c LedgerCategory) SettledStatus() LedgerStatus {
	switch c {
	case CategoryIncome:
		return LedgerReceived
	case CategorySavings:
		return LedgerCompleted
	default:
		return LedgerPaid
	}
}

// ValidFor reports whether s is a legal status for an entry of category c.
func (s LedgerStatus) ValidFor(c LedgerCategory) bool {
	return s == LedgerPending || s == c.SettledStatus()
}

func (e LedgerEntry) Validate() error {
	if e.AccountID == "" {
		return NewValidationError("account_id", "must not be empty")
	}
	if !e.Category.Valid() {
		return NewValidationError("category", "unknown category %q", e.Category)
	}
	if err := e.Date.Validate(); err != nil {
		return NewValidationError("date", "%v", err)
	}
	if err := e.Amount.Validate(); err != nil {
		return NewValidationError("amount", "must be greater than zero")
	}
	if !e.Status.ValidFor(e.Category) {
		return NewValidationError("status", "%q is not valid for %s entries", e.Status, e.Category)
	}
	return nil
}

func (a Account) Validate() error {
	if a.Name == "" {
		return NewValidationError("name", "must not be empty")
	}
	return nil
}
