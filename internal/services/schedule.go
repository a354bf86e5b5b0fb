// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for obligation schedules. Each
// frequency has a PeriodStrategy that knows how to step a due date forward
// by whole periods.
package services

import (
	"fmt"
	"time"

	"planner/internal/core"
)

// PeriodStrategy steps due dates for one frequency.
type PeriodStrategy interface {
	// Advance returns the date n periods after from. anchorDay is the day of
	// month the schedule was started on; month-based strategies use it so a
	// schedule started on the 31st lands on the last day of shorter months
	// and returns to the 31st when possible.
	Advance(from core.Date, n int, anchorDay int) core.Date
}

// DayStrategy steps by a fixed number of days.
type DayStrategy struct {
	Days int
}

func (s DayStrategy) Advance(from core.Date, n int, _ int) core.Date {
	return from.AddDays(s.Days * n)
}

// MonthStrategy steps by a fixed number of calendar months.
type MonthStrategy struct {
	Months int
}

func (s MonthStrategy) Advance(from core.Date, n int, anchorDay int) core.Date {
	if anchorDay < 1 {
		anchorDay = from.Day()
	}
	// Normalize to the 1st before adding months so time.Date never rolls
	// Jan 31 + 1 month over into March.
	first := time.Date(from.Year(), time.Month(from.Month())+time.Month(s.Months*n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := anchorDay
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

// periodStrategies maps frequencies to their strategies.
var periodStrategies = map[core.Frequency]PeriodStrategy{
	core.Daily:     DayStrategy{Days: 1},
	core.Weekly:    DayStrategy{Days: 7},
	core.Biweekly:  DayStrategy{Days: 14},
	core.Monthly:   MonthStrategy{Months: 1},
	core.Quarterly: MonthStrategy{Months: 3},
	core.Yearly:    MonthStrategy{Months: 12},
}

// GetPeriodStrategy returns the strategy for a frequency.
func GetPeriodStrategy(frequency core.Frequency) (PeriodStrategy, error) {
	s, ok := periodStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return s, nil
}

// NextDueDate computes the due date of the obligation's next occurrence.
//
// Installments are always computed from the start date
// (start + completed × period) so repeated advancing never drifts.
// Recurring templates carry their next due date explicitly.
func NextDueDate(o core.Obligation) (core.Date, error) {
	switch o.Kind {
	case core.KindInstallment:
		s, err := GetPeriodStrategy(o.Frequency)
		if err != nil {
			return core.Date{}, err
		}
		return s.Advance(o.StartDate, o.CompletedInstallments, o.StartDate.Day()), nil
	case core.KindRecurring:
		if o.NextDueDate.IsZero() {
			return o.StartDate, nil
		}
		return o.NextDueDate, nil
	default:
		return core.Date{}, fmt.Errorf("unknown obligation kind: %s", o.Kind)
	}
}

// LastInstallmentDate is the due date of the final installment,
// start + (total-1) periods.
func LastInstallmentDate(o core.Obligation) (core.Date, error) {
	s, err := GetPeriodStrategy(o.Frequency)
	if err != nil {
		return core.Date{}, err
	}
	return s.Advance(o.StartDate, o.TotalInstallments-1, o.StartDate.Day()), nil
}

// validateSchedule rejects an installment plan whose last installment falls
// after its end date.
func validateSchedule(o core.Obligation) error {
	if o.Kind != core.KindInstallment || o.TotalInstallments <= 0 {
		return nil
	}
	last, err := LastInstallmentDate(o)
	if err != nil {
		return core.NewValidationError("frequency", "%v", err)
	}
	if last.After(o.EndDate) {
		return core.NewValidationError("end_date",
			"installment %d falls on %s, after end date %s", o.TotalInstallments, last, o.EndDate)
	}
	return nil
}

// followingDueDate returns the due date one period after due.
func followingDueDate(o core.Obligation, due core.Date) (core.Date, error) {
	s, err := GetPeriodStrategy(o.Frequency)
	if err != nil {
		return core.Date{}, err
	}
	return s.Advance(due, 1, o.StartDate.Day()), nil
}
