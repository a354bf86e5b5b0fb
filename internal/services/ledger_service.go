package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"planner/internal/core"
	"planner/internal/ports"
)

// EntryPublisher announces newly created ledger entries to other processes.
type EntryPublisher interface {
	PublishEntryCreated(ctx context.Context, e core.LedgerEntry) error
}

// LedgerService saves ledger entries and publishes a creation event. It
// satisfies ports.LedgerStore so the registry can write through it.
type LedgerService struct {
	store     ports.LedgerStore
	publisher EntryPublisher
}

var _ ports.LedgerStore = (*LedgerService)(nil)

func NewLedgerService(store ports.LedgerStore, publisher EntryPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// Create saves the entry locally first; a failed publish is logged and
// never undoes the write.
func (s *LedgerService) Create(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	saved, err := s.store.Create(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("save ledger entry: %w", err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping entry event", "id", saved.ID)
		return saved, nil
	}
	if err := s.publisher.PublishEntryCreated(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger entry event",
			"id", saved.ID,
			"obligation_id", saved.ObligationID,
			"error", err)
	}
	return saved, nil
}

func (s *LedgerService) ListByAccount(ctx context.Context, accountID string) ([]core.LedgerEntry, error) {
	return s.store.ListByAccount(ctx, accountID)
}

func (s *LedgerService) ListByObligation(ctx context.Context, obligationID string) ([]core.LedgerEntry, error) {
	return s.store.ListByObligation(ctx, obligationID)
}

func (s *LedgerService) FindByObligationAndDate(ctx context.Context, obligationID string, date core.Date) (*core.LedgerEntry, error) {
	return s.store.FindByObligationAndDate(ctx, obligationID, date)
}

func (s *LedgerService) CountByObligation(ctx context.Context, obligationID string) (int, error) {
	return s.store.CountByObligation(ctx, obligationID)
}

// Close closes the publisher when it holds a connection.
func (s *LedgerService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
