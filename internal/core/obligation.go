package core

import (
	"strings"
	"time"
)

const (
	KindRecurring   ObligationKind = "recurring"
	KindInstallment ObligationKind = "installment"
)

const (
	StatusActive    ObligationStatus = "active"
	StatusPaused    ObligationStatus = "paused"
	StatusCompleted ObligationStatus = "completed"
)

type (
	// ObligationKind distinguishes recurring templates from installment
	// schedules (EMIs).
	ObligationKind string

	ObligationStatus string

	// Obligation is a standing, periodic, account-bound commitment.
	// Installment fields are only meaningful for KindInstallment, NextDueDate
	// only for KindRecurring.
	Obligation struct {
		ID        string
		Name      string
		AccountID string
		Amount    Money
		Frequency Frequency
		Status    ObligationStatus
		Kind      ObligationKind
		Category  LedgerCategory

		StartDate Date
		EndDate   Date // zero means open-ended (recurring only)

		TotalInstallments     int
		CompletedInstallments int

		NextDueDate Date

		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

func (k ObligationKind) Valid() bool {
	return k == KindRecurring || k == KindInstallment
}

func (s ObligationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	default:
		return false
	}
}

// HasEnd reports whether the obligation has an end date.
func (o Obligation) HasEnd() bool {
	return !o.EndDate.IsZero()
}

// Validate checks the shape of an obligation. It does not resolve the
// account; that is the registry's job.
func (o Obligation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return NewValidationError("name", "must not be empty")
	}
	if len(o.Name) > 200 {
		return NewValidationError("name", "too long (max 200 characters)")
	}
	if strings.TrimSpace(o.AccountID) == "" {
		return NewValidationError("account_id", "must not be empty")
	}
	if err := o.Amount.Validate(); err != nil {
		return NewValidationError("amount", "must be greater than zero")
	}
	if !o.Frequency.Valid() {
		return NewValidationError("frequency", "unknown frequency %q", o.Frequency)
	}
	if !o.Kind.Valid() {
		return NewValidationError("kind", "unknown kind %q", o.Kind)
	}
	if !o.Status.Valid() {
		return NewValidationError("status", "unknown status %q", o.Status)
	}
	if o.Category != "" && !o.Category.Valid() {
		return NewValidationError("category", "unknown category %q", o.Category)
	}
	if err := o.StartDate.Validate(); err != nil {
		return NewValidationError("start_date", "%v", err)
	}
	if o.HasEnd() && o.StartDate.After(o.EndDate) {
		return NewValidationError("end_date", "start date %s is after end date %s", o.StartDate, o.EndDate)
	}

	switch o.Kind {
	case KindInstallment:
		if !o.HasEnd() {
			return NewValidationError("end_date", "required for installment schedules")
		}
		if o.TotalInstallments <= 0 {
			return NewValidationError("total_installments", "must be a positive integer")
		}
		if o.CompletedInstallments < 0 || o.CompletedInstallments > o.TotalInstallments {
			return NewValidationError("completed_installments", "must be between 0 and %d", o.TotalInstallments)
		}
	case KindRecurring:
		if o.NextDueDate.IsZero() {
			return NewValidationError("next_due_date", "must be set")
		}
		if o.NextDueDate.Before(o.StartDate) {
			return NewValidationError("next_due_date", "must not be before start date")
		}
	}
	return nil
}
