package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"planner/internal/core"
	"planner/internal/ports"
)

var _ ports.LedgerStore = (*LedgerStore)(nil)

type LedgerStore struct {
	db *sql.DB
}

const ledgerColumns = `id, account_id, category, date, amount_cents, description, status, obligation_id, created_at`

// Create inserts an entry. A second entry for the same (obligation, date)
// fails with core.ErrDuplicateEntry via the partial unique index.
func (s *LedgerStore) Create(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	obligationID := sql.NullString{String: e.ObligationID, Valid: e.ObligationID != ""}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+ledgerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, string(e.Category), e.Date.String(), e.Amount.Cents,
		e.Description, string(e.Status), obligationID, formatTime(e.CreatedAt))
	if isUniqueViolation(err) {
		return core.LedgerEntry{}, core.ErrDuplicateEntry
	}
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	slog.DebugContext(ctx, "Ledger entry saved to SQLite",
		"id", e.ID,
		"obligation_id", e.ObligationID,
		"date", e.Date.String(),
		"amount_cents", e.Amount.Cents)
	return e, nil
}

func (s *LedgerStore) ListByAccount(ctx context.Context, accountID string) ([]core.LedgerEntry, error) {
	out, err := queryAll(ctx, s.db, scanLedgerEntry,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE account_id = ? ORDER BY date, created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries for account %s: %w", accountID, err)
	}
	return out, nil
}

func (s *LedgerStore) ListByObligation(ctx context.Context, obligationID string) ([]core.LedgerEntry, error) {
	out, err := queryAll(ctx, s.db, scanLedgerEntry,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE obligation_id = ? ORDER BY date`, obligationID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries for obligation %s: %w", obligationID, err)
	}
	return out, nil
}

func (s *LedgerStore) FindByObligationAndDate(ctx context.Context, obligationID string, date core.Date) (*core.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE obligation_id = ? AND date = ?`,
		obligationID, date.String())
	e, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	return &e, nil
}

func (s *LedgerStore) CountByObligation(ctx context.Context, obligationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE obligation_id = ?`, obligationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

func (s *LedgerStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger entry %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanLedgerEntry(row rowScanner) (core.LedgerEntry, error) {
	var (
		e                core.LedgerEntry
		category, status string
		date, createdAt  string
		obligationID     sql.NullString
	)
	if err := row.Scan(&e.ID, &e.AccountID, &category, &date, &e.Amount.Cents,
		&e.Description, &status, &obligationID, &createdAt); err != nil {
		return core.LedgerEntry{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Date = d
	e.Category = core.LedgerCategory(category)
	e.Status = core.LedgerStatus(status)
	e.ObligationID = obligationID.String
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}
