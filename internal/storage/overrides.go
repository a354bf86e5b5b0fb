package storage

import (
	"context"
	"database/sql"
	"fmt"

	"planner/internal/core"
	"planner/internal/ports"
)

var _ ports.OverrideStore = (*OverrideStore)(nil)

type OverrideStore struct {
	db *sql.DB
}

func (s *OverrideStore) Add(ctx context.Context, k core.OverrideKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO due_date_overrides (entity_id, date) VALUES (?, ?)`, k.EntityID, k.Date.String())
	if err != nil {
		return fmt.Errorf("add override: %w", err)
	}
	return nil
}

func (s *OverrideStore) Remove(ctx context.Context, k core.OverrideKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM due_date_overrides WHERE entity_id = ? AND date = ?`, k.EntityID, k.Date.String())
	if err != nil {
		return fmt.Errorf("remove override: %w", err)
	}
	return nil
}

func (s *OverrideStore) List(ctx context.Context) ([]core.OverrideKey, error) {
	out, err := queryAll(ctx, s.db, func(row rowScanner) (core.OverrideKey, error) {
		var k core.OverrideKey
		var date string
		if err := row.Scan(&k.EntityID, &date); err != nil {
			return k, err
		}
		d, err := core.ParseDate(date)
		k.Date = d
		return k, err
	}, `SELECT entity_id, date FROM due_date_overrides ORDER BY entity_id, date`)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return out, nil
}
