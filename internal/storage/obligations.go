package storage

import (
	"context"
	"database/sql"
	"fmt"

	"planner/internal/core"
	"planner/internal/ports"
)

var _ ports.ObligationStore = (*ObligationStore)(nil)

type ObligationStore struct {
	db *sql.DB
}

const obligationColumns = `id, name, account_id, amount_cents, frequency, status, kind, category,
	start_date, end_date, total_installments, completed_installments, next_due_date, created_at, updated_at`

// Save inserts or replaces the obligation row.
func (s *ObligationStore) Save(ctx context.Context, o core.Obligation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO obligations (`+obligationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			account_id = excluded.account_id,
			amount_cents = excluded.amount_cents,
			frequency = excluded.frequency,
			status = excluded.status,
			kind = excluded.kind,
			category = excluded.category,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			total_installments = excluded.total_installments,
			completed_installments = excluded.completed_installments,
			next_due_date = excluded.next_due_date,
			updated_at = excluded.updated_at`,
		o.ID, o.Name, o.AccountID, o.Amount.Cents, string(o.Frequency), string(o.Status),
		string(o.Kind), string(o.Category), o.StartDate.String(), nullDate(o.EndDate),
		o.TotalInstallments, o.CompletedInstallments, nullDate(o.NextDueDate),
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save obligation %s: %w", o.ID, err)
	}
	return nil
}

func (s *ObligationStore) Get(ctx context.Context, id string) (core.Obligation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	o, err := scanObligation(row)
	if err != nil {
		return core.Obligation{}, notFound("obligation", id, err)
	}
	return o, nil
}

func (s *ObligationStore) List(ctx context.Context) ([]core.Obligation, error) {
	out, err := queryAll(ctx, s.db, scanObligation,
		`SELECT `+obligationColumns+` FROM obligations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return out, nil
}

func (s *ObligationStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanObligation(row rowScanner) (core.Obligation, error) {
	var (
		o                                 core.Obligation
		frequency, status, kind, category string
		start, createdAt, updatedAt       string
		end, next                         sql.NullString
	)
	if err := row.Scan(&o.ID, &o.Name, &o.AccountID, &o.Amount.Cents, &frequency, &status, &kind,
		&category, &start, &end, &o.TotalInstallments, &o.CompletedInstallments, &next,
		&createdAt, &updatedAt); err != nil {
		return core.Obligation{}, err
	}

	o.Frequency = core.Frequency(frequency)
	o.Status = core.ObligationStatus(status)
	o.Kind = core.ObligationKind(kind)
	o.Category = core.LedgerCategory(category)

	var err error
	if o.StartDate, err = core.ParseDate(start); err != nil {
		return core.Obligation{}, err
	}
	if o.EndDate, err = scanDate(end); err != nil {
		return core.Obligation{}, err
	}
	if o.NextDueDate, err = scanDate(next); err != nil {
		return core.Obligation{}, err
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return o, nil
}
