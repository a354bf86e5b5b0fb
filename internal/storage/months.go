package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"planner/internal/core"
	"planner/internal/ports"
)

var _ ports.PlannedMonthStore = (*MonthStore)(nil)

// MonthStore keeps each snapshot in one row. The nested parts (statuses,
// allocations, adjustments) are JSON columns since a snapshot is only ever
// read and replaced whole.
type MonthStore struct {
	db *sql.DB
}

type allocationRecord struct {
	ID              string            `json:"id"`
	AccountID       string            `json:"account_id"`
	FixedBalance    *int64            `json:"fixed_balance_cents"`
	SavingsTransfer *int64            `json:"savings_transfer_cents"`
	BucketAmounts   map[string]*int64 `json:"bucket_amounts_cents"`
	RemainingCash   int64             `json:"remaining_cash_cents"`
}

type adjustmentRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount_cents"`
	AccountID   string `json:"account_id,omitempty"`
	BucketID    string `json:"bucket_id,omitempty"`
}

const monthColumns = `id, month_start, inflow_cents, fixed_factor, bucket_order, status_by_bucket,
	due_dates, accounts, manual_adjustments`

func (s *MonthStore) Save(ctx context.Context, m core.PlannedMonth) error {
	if err := m.Validate(); err != nil {
		return err
	}

	var inflow sql.NullInt64
	if m.InflowTotal != nil {
		inflow = sql.NullInt64{Int64: m.InflowTotal.Cents, Valid: true}
	}
	var factor sql.NullFloat64
	if m.FixedFactor != nil {
		factor = sql.NullFloat64{Float64: *m.FixedFactor, Valid: true}
	}

	order, err := marshalJSON(nonNilStrings(m.BucketOrder))
	if err != nil {
		return err
	}
	statuses, err := marshalJSON(m.StatusByBucket)
	if err != nil {
		return err
	}
	dueDates, err := marshalJSON(m.DueDates)
	if err != nil {
		return err
	}
	accounts, err := marshalJSON(toAllocationRecords(m.Accounts))
	if err != nil {
		return err
	}
	adjustments, err := marshalJSON(toAdjustmentRecords(m.ManualAdjustments))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO planned_months (`+monthColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			month_start = excluded.month_start,
			inflow_cents = excluded.inflow_cents,
			fixed_factor = excluded.fixed_factor,
			bucket_order = excluded.bucket_order,
			status_by_bucket = excluded.status_by_bucket,
			due_dates = excluded.due_dates,
			accounts = excluded.accounts,
			manual_adjustments = excluded.manual_adjustments,
			updated_at = excluded.updated_at`,
		m.ID, m.MonthStart.String(), inflow, factor, order, statuses, dueDates, accounts, adjustments,
		formatTime(time.Now()))
	if isUniqueViolation(err) {
		return core.NewValidationError("month_start", "month %s is already planned", m.MonthStart)
	}
	if err != nil {
		return fmt.Errorf("save planned month %s: %w", m.ID, err)
	}
	return nil
}

func (s *MonthStore) Get(ctx context.Context, id string) (core.PlannedMonth, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+monthColumns+` FROM planned_months WHERE id = ?`, id)
	m, err := scanMonth(row)
	if err != nil {
		return core.PlannedMonth{}, notFound("planned month", id, err)
	}
	return m, nil
}

func (s *MonthStore) GetByMonthStart(ctx context.Context, monthStart core.Date) (core.PlannedMonth, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+monthColumns+` FROM planned_months WHERE month_start = ?`, monthStart.String())
	m, err := scanMonth(row)
	if err != nil {
		return core.PlannedMonth{}, notFound("planned month starting", monthStart.String(), err)
	}
	return m, nil
}

func (s *MonthStore) List(ctx context.Context) ([]core.PlannedMonth, error) {
	out, err := queryAll(ctx, s.db, scanMonth, `SELECT `+monthColumns+` FROM planned_months ORDER BY month_start`)
	if err != nil {
		return nil, fmt.Errorf("list planned months: %w", err)
	}
	return out, nil
}

func (s *MonthStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM planned_months WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete planned month: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("planned month %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanMonth(row rowScanner) (core.PlannedMonth, error) {
	var (
		m                                       core.PlannedMonth
		start                                   string
		inflow                                  sql.NullInt64
		factor                                  sql.NullFloat64
		order, statuses, dueDates, accs, adjust string
	)
	if err := row.Scan(&m.ID, &start, &inflow, &factor, &order, &statuses, &dueDates, &accs, &adjust); err != nil {
		return core.PlannedMonth{}, err
	}

	var err error
	if m.MonthStart, err = core.ParseDate(start); err != nil {
		return core.PlannedMonth{}, err
	}
	if inflow.Valid {
		m.InflowTotal = &core.Money{Cents: inflow.Int64}
	}
	if factor.Valid {
		f := factor.Float64
		m.FixedFactor = &f
	}

	var records []allocationRecord
	var adjustments []adjustmentRecord
	for _, part := range []struct {
		raw  string
		dest any
	}{
		{order, &m.BucketOrder},
		{statuses, &m.StatusByBucket},
		{dueDates, &m.DueDates},
		{accs, &records},
		{adjust, &adjustments},
	} {
		if err := json.Unmarshal([]byte(part.raw), part.dest); err != nil {
			return core.PlannedMonth{}, fmt.Errorf("decode planned month %s: %w", m.ID, err)
		}
	}
	m.Accounts = fromAllocationRecords(records)
	m.ManualAdjustments = fromAdjustmentRecords(adjustments)
	return m, nil
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode planned month: %w", err)
	}
	return string(b), nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func centsPtr(m *core.Money) *int64 {
	if m == nil {
		return nil
	}
	c := m.Cents
	return &c
}

func moneyPtr(c *int64) *core.Money {
	if c == nil {
		return nil
	}
	return &core.Money{Cents: *c}
}

func toAllocationRecords(in []core.AccountAllocation) []allocationRecord {
	out := make([]allocationRecord, 0, len(in))
	for _, a := range in {
		r := allocationRecord{
			ID:              a.ID,
			AccountID:       a.AccountID,
			FixedBalance:    centsPtr(a.FixedBalance),
			SavingsTransfer: centsPtr(a.SavingsTransfer),
			BucketAmounts:   make(map[string]*int64, len(a.BucketAmounts)),
			RemainingCash:   a.RemainingCash.Cents,
		}
		for k, v := range a.BucketAmounts {
			r.BucketAmounts[k] = centsPtr(v)
		}
		out = append(out, r)
	}
	return out
}

func fromAllocationRecords(in []allocationRecord) []core.AccountAllocation {
	out := make([]core.AccountAllocation, 0, len(in))
	for _, r := range in {
		a := core.AccountAllocation{
			ID:              r.ID,
			AccountID:       r.AccountID,
			FixedBalance:    moneyPtr(r.FixedBalance),
			SavingsTransfer: moneyPtr(r.SavingsTransfer),
			BucketAmounts:   make(map[string]*core.Money, len(r.BucketAmounts)),
			RemainingCash:   core.Money{Cents: r.RemainingCash},
		}
		for k, v := range r.BucketAmounts {
			a.BucketAmounts[k] = moneyPtr(v)
		}
		out = append(out, a)
	}
	return out
}

func toAdjustmentRecords(in []core.ManualAdjustment) []adjustmentRecord {
	out := make([]adjustmentRecord, 0, len(in))
	for _, a := range in {
		out = append(out, adjustmentRecord{
			ID:          a.ID,
			Description: a.Description,
			Amount:      a.Amount.Cents,
			AccountID:   a.AccountID,
			BucketID:    a.BucketID,
		})
	}
	return out
}

func fromAdjustmentRecords(in []adjustmentRecord) []core.ManualAdjustment {
	out := make([]core.ManualAdjustment, 0, len(in))
	for _, r := range in {
		out = append(out, core.ManualAdjustment{
			ID:          r.ID,
			Description: r.Description,
			Amount:      core.Money{Cents: r.Amount},
			AccountID:   r.AccountID,
			BucketID:    r.BucketID,
		})
	}
	return out
}
