package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"planner/internal/core"
	"planner/internal/ports"
)

var _ ports.AccountDirectory = (*AccountStore)(nil)

type AccountStore struct {
	db *sql.DB
}

func (s *AccountStore) Resolve(ctx context.Context, accountID string) (core.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, bank_name FROM accounts WHERE id = ?`, accountID)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFound("account", accountID, err)
	}
	return a, nil
}

// FindByName matches case-insensitively.
func (s *AccountStore) FindByName(ctx context.Context, name string) (core.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, bank_name FROM accounts WHERE name = ?`, strings.TrimSpace(name))
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFound("account named", name, err)
	}
	return a, nil
}

func (s *AccountStore) List(ctx context.Context) ([]core.Account, error) {
	out, err := queryAll(ctx, s.db, scanAccount, `SELECT id, name, bank_name FROM accounts ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (s *AccountStore) Create(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Name = strings.TrimSpace(a.Name)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, bank_name) VALUES (?, ?, ?)`, a.ID, a.Name, a.BankName)
	if isUniqueViolation(err) {
		return core.Account{}, core.NewValidationError("name", "account %q already exists", a.Name)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.Name, &a.BankName)
	return a, err
}
