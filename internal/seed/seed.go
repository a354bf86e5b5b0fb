// Package seed imports planned months from the JSON export of the old
// spreadsheet planner.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"planner/internal/core"
	"planner/internal/ports"
	"planner/internal/services"
)

// MonthSaver persists an imported snapshot. *services.PlannerService
// satisfies it.
type MonthSaver interface {
	GetMonthByStart(ctx context.Context, monthStart core.Date) (core.PlannedMonth, error)
	SaveMonth(ctx context.Context, m core.PlannedMonth) (core.PlannedMonth, error)
	Catalogue() []core.Bucket
}

type monthRecord struct {
	MonthStart     string              `json:"month_start"`
	FixedFactor    decimal.NullDecimal `json:"fixed_factor"`
	InflowTotal    decimal.NullDecimal `json:"inflow_total"`
	StatusByBucket map[string]string   `json:"status_by_bucket"`
	DueDates       map[string]*string  `json:"due_dates"`
	BucketOrder    []string            `json:"bucket_order"`
	Accounts       []accountRecord     `json:"accounts"`
}

type accountRecord struct {
	Name              string                         `json:"name"`
	RemainingCash     decimal.NullDecimal            `json:"remaining_cash"`
	FixedBalance      decimal.NullDecimal            `json:"fixed_balance"`
	SavingsTransfer   decimal.NullDecimal            `json:"savings_transfer"`
	BucketAllocations map[string]decimal.NullDecimal `json:"bucket_allocations"`
}

// Report summarises one import.
type Report struct {
	Imported        []core.Date
	Skipped         []core.Date
	AccountsCreated []string
	Warnings        []string
}

type Importer struct {
	months   MonthSaver
	accounts ports.AccountDirectory
}

func NewImporter(months MonthSaver, accounts ports.AccountDirectory) *Importer {
	return &Importer{months: months, accounts: accounts}
}

func (im *Importer) ImportFile(ctx context.Context, path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads a JSON array of month exports. Months whose start is already
// planned are skipped. Remaining cash is recomputed and any disagreement
// with the exported value is reported as a warning.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Report, error) {
	var records []monthRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return Report{}, fmt.Errorf("decode seed file: %w", err)
	}

	var report Report
	buckets := bucketIndex(im.months.Catalogue())
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		start, err := parseMonthStart(rec.MonthStart)
		if err != nil {
			return report, fmt.Errorf("record %d: %w", i, err)
		}

		_, err = im.months.GetMonthByStart(ctx, start)
		if err == nil {
			report.Skipped = append(report.Skipped, start)
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return report, fmt.Errorf("look up month %s: %w", start, err)
		}

		m, err := im.buildMonth(ctx, start, rec, buckets, &report)
		if err != nil {
			return report, fmt.Errorf("month %s: %w", start, err)
		}
		saved, err := im.months.SaveMonth(ctx, m)
		if err != nil {
			return report, fmt.Errorf("save month %s: %w", start, err)
		}
		report.Imported = append(report.Imported, start)
		checkRemaining(saved, rec, &report)

		slog.InfoContext(ctx, "Imported planned month",
			"component", "seed",
			"month_start", start.String(),
			"accounts", len(saved.Accounts))
	}
	return report, nil
}

func (im *Importer) buildMonth(ctx context.Context, start core.Date, rec monthRecord, buckets map[string]string, report *Report) (core.PlannedMonth, error) {
	m := core.PlannedMonth{
		ID:             uuid.NewString(),
		MonthStart:     start,
		InflowTotal:    money(rec.InflowTotal),
		StatusByBucket: map[string]core.BucketStatus{},
		DueDates:       map[string]core.Date{},
	}
	if rec.FixedFactor.Valid {
		f := rec.FixedFactor.Decimal.InexactFloat64()
		m.FixedFactor = &f
	}

	for _, name := range rec.BucketOrder {
		m.BucketOrder = append(m.BucketOrder, bucketID(buckets, name))
	}
	for name, raw := range rec.StatusByBucket {
		st, ok := core.ParseBucketStatus(raw)
		if !ok {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: bucket %q has unknown status %q, using pending", start, name, raw))
			st = core.BucketPending
		}
		m.StatusByBucket[bucketID(buckets, name)] = st
	}
	for name, raw := range rec.DueDates {
		if raw == nil {
			continue
		}
		if d := services.ParseDueDate(*raw); d != nil {
			m.DueDates[bucketID(buckets, name)] = *d
		} else {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: bucket %q has unreadable due date %q", start, name, *raw))
		}
	}

	for _, a := range rec.Accounts {
		acc, err := im.account(ctx, a.Name, report)
		if err != nil {
			return core.PlannedMonth{}, err
		}
		alloc := core.AccountAllocation{
			ID:              uuid.NewString(),
			AccountID:       acc.ID,
			FixedBalance:    money(a.FixedBalance),
			SavingsTransfer: money(a.SavingsTransfer),
			BucketAmounts:   make(map[string]*core.Money, len(a.BucketAllocations)),
		}
		for name, v := range a.BucketAllocations {
			alloc.BucketAmounts[bucketID(buckets, name)] = money(v)
		}
		m.Accounts = append(m.Accounts, alloc)
	}
	return m, nil
}

// account resolves name through the directory, creating the account on
// first sight.
func (im *Importer) account(ctx context.Context, name string, report *Report) (core.Account, error) {
	acc, err := im.accounts.FindByName(ctx, name)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Account{}, err
	}
	acc, err = im.accounts.Create(ctx, core.Account{Name: name})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account %q: %w", name, err)
	}
	report.AccountsCreated = append(report.AccountsCreated, acc.Name)
	return acc, nil
}

func checkRemaining(m core.PlannedMonth, rec monthRecord, report *Report) {
	for i, a := range rec.Accounts {
		if i >= len(m.Accounts) || !a.RemainingCash.Valid {
			continue
		}
		exported := core.MoneyFromDecimal(a.RemainingCash.Decimal)
		if got := m.Accounts[i].RemainingCash; got != exported {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%s: %s remaining cash recomputed as %s, export says %s",
				m.MonthStart, a.Name, got, exported))
		}
	}
}

func parseMonthStart(s string) (core.Date, error) {
	d := services.ParseDueDate(s)
	if d == nil {
		return core.Date{}, core.NewValidationError("month_start", "unreadable month start %q", s)
	}
	return d.MonthStart(), nil
}

func money(d decimal.NullDecimal) *core.Money {
	if !d.Valid {
		return nil
	}
	m := core.MoneyFromDecimal(d.Decimal)
	return &m
}

// bucketIndex maps lower-cased bucket ids and names to ids.
func bucketIndex(catalogue []core.Bucket) map[string]string {
	idx := make(map[string]string, 2*len(catalogue))
	for _, b := range catalogue {
		idx[strings.ToLower(b.ID)] = b.ID
		idx[strings.ToLower(b.Name)] = b.ID
	}
	return idx
}

// bucketID maps an exported bucket name to a catalogue id. Unknown names are
// kept as they are and live in the month's own bucket order.
func bucketID(idx map[string]string, name string) string {
	name = strings.TrimSpace(name)
	if id, ok := idx[strings.ToLower(name)]; ok {
		return id
	}
	return name
}
