package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"planner/internal/core"
	"planner/internal/ports"
)

// AllocationInput creates or replaces one account allocation. An empty ID
// creates a new allocation.
type AllocationInput struct {
	ID              string
	AccountID       string
	FixedBalance    *core.Money
	SavingsTransfer *core.Money
	BucketAmounts   map[string]*core.Money
}

// PlannerService is the store-backed face of the budget aggregator and the
// due-date policy. Every mutation touching inflow, allocations or
// adjustments recomputes remaining cash before it is persisted.
type PlannerService struct {
	months    ports.PlannedMonthStore
	overrides ports.OverrideStore
	accounts  ports.AccountDirectory

	buckets   []core.Bucket
	catalogue core.BucketCatalogue

	mu sync.Mutex
}

func NewPlannerService(months ports.PlannedMonthStore, overrides ports.OverrideStore, accounts ports.AccountDirectory, buckets []core.Bucket) *PlannerService {
	catalogue := make(core.BucketCatalogue, len(buckets))
	for _, b := range buckets {
		catalogue[b.ID] = b
	}
	return &PlannerService{
		months:    months,
		overrides: overrides,
		accounts:  accounts,
		buckets:   buckets,
		catalogue: catalogue,
	}
}

// Catalogue returns the bucket definitions in display order.
func (s *PlannerService) Catalogue() []core.Bucket {
	return append([]core.Bucket(nil), s.buckets...)
}

// CreateMonth starts an empty snapshot for the month containing monthStart,
// with every catalogue bucket at its default status.
func (s *PlannerService) CreateMonth(ctx context.Context, monthStart core.Date) (core.PlannedMonth, error) {
	if err := monthStart.Validate(); err != nil {
		return core.PlannedMonth{}, core.NewValidationError("month_start", "%v", err)
	}
	start := monthStart.MonthStart()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.months.GetByMonthStart(ctx, start); err == nil {
		return core.PlannedMonth{}, core.NewValidationError("month_start", "month %s is already planned", start)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.PlannedMonth{}, fmt.Errorf("lookup month: %w", err)
	}

	m := core.PlannedMonth{
		ID:             uuid.NewString(),
		MonthStart:     start,
		StatusByBucket: make(map[string]core.BucketStatus, len(s.buckets)),
		DueDates:       map[string]core.Date{},
	}
	for _, b := range s.buckets {
		m.BucketOrder = append(m.BucketOrder, b.ID)
		m.StatusByBucket[b.ID] = s.catalogue.DefaultStatus(b.ID)
	}
	if err := s.months.Save(ctx, m); err != nil {
		return core.PlannedMonth{}, fmt.Errorf("save month: %w", err)
	}
	slog.InfoContext(ctx, "Planned month created", "id", m.ID, "month_start", start.String())
	return m, nil
}

// SaveMonth persists a whole snapshot after refreshing its remaining cash.
// Used by imports.
func (s *PlannerService) SaveMonth(ctx context.Context, m core.PlannedMonth) (core.PlannedMonth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	RecomputeRemainingCash(&m)
	if err := s.months.Save(ctx, m); err != nil {
		return core.PlannedMonth{}, err
	}
	return m, nil
}

func (s *PlannerService) GetMonth(ctx context.Context, monthID string) (core.PlannedMonth, error) {
	return s.months.Get(ctx, monthID)
}

func (s *PlannerService) GetMonthByStart(ctx context.Context, monthStart core.Date) (core.PlannedMonth, error) {
	return s.months.GetByMonthStart(ctx, monthStart.MonthStart())
}

func (s *PlannerService) ListMonths(ctx context.Context) ([]core.PlannedMonth, error) {
	return s.months.List(ctx)
}

// DeleteMonth removes a whole snapshot. There is no partial delete.
func (s *PlannerService) DeleteMonth(ctx context.Context, monthID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.months.Delete(ctx, monthID)
}

func (s *PlannerService) BucketTotals(ctx context.Context, monthID string) (core.BucketTotals, error) {
	m, err := s.months.Get(ctx, monthID)
	if err != nil {
		return core.BucketTotals{}, err
	}
	return BucketTotals(m, s.catalogue), nil
}

// EffectiveBucketTotals applies due-date zeroing as of today using the
// stored overrides.
func (s *PlannerService) EffectiveBucketTotals(ctx context.Context, monthID string, today core.Date) (core.BucketTotals, error) {
	m, err := s.months.Get(ctx, monthID)
	if err != nil {
		return core.BucketTotals{}, err
	}
	overrides, err := s.OverrideSet(ctx)
	if err != nil {
		return core.BucketTotals{}, err
	}
	return EffectiveBucketTotals(m, s.catalogue, today, overrides), nil
}

// RemainingCash computes the value from the snapshot rather than reading
// the cached field.
func (s *PlannerService) RemainingCash(ctx context.Context, accountID, monthID string) (core.Money, error) {
	m, err := s.months.Get(ctx, monthID)
	if err != nil {
		return core.Money{}, err
	}
	return RemainingCash(m, accountID), nil
}

func (s *PlannerService) SetInflow(ctx context.Context, monthID string, inflow *core.Money) (core.PlannedMonth, error) {
	return s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		if inflow == nil {
			m.InflowTotal = nil
			return nil
		}
		m.InflowTotal = inflow.Ptr()
		return nil
	})
}

func (s *PlannerService) SetFixedFactor(ctx context.Context, monthID string, factor *float64) (core.PlannedMonth, error) {
	return s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		if factor == nil {
			m.FixedFactor = nil
			return nil
		}
		f := *factor
		m.FixedFactor = &f
		return nil
	})
}

func (s *PlannerService) UpsertAllocation(ctx context.Context, monthID string, in AllocationInput) (core.AccountAllocation, error) {
	if _, err := s.accounts.Resolve(ctx, in.AccountID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.AccountAllocation{}, core.UnknownAccount(in.AccountID)
		}
		return core.AccountAllocation{}, fmt.Errorf("resolve account: %w", err)
	}

	alloc := core.AccountAllocation{
		ID:              in.ID,
		AccountID:       in.AccountID,
		FixedBalance:    in.FixedBalance,
		SavingsTransfer: in.SavingsTransfer,
		BucketAmounts:   in.BucketAmounts,
	}.Clone()
	if alloc.ID == "" {
		alloc.ID = uuid.NewString()
	}

	var saved core.AccountAllocation
	_, err := s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		if existing, ok := m.Allocation(alloc.ID); ok {
			*existing = alloc
		} else {
			m.Accounts = append(m.Accounts, alloc)
		}
		for _, bucket := range slices.Sorted(maps.Keys(alloc.BucketAmounts)) {
			if !slices.Contains(m.BucketOrder, bucket) {
				m.BucketOrder = append(m.BucketOrder, bucket)
			}
		}
		return nil
	}, func(m *core.PlannedMonth) {
		a, _ := m.Allocation(alloc.ID)
		saved = a.Clone()
	})
	return saved, err
}

func (s *PlannerService) RemoveAllocation(ctx context.Context, monthID, allocationID string) (core.PlannedMonth, error) {
	return s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		for i, a := range m.Accounts {
			if a.ID == allocationID {
				m.Accounts = append(m.Accounts[:i], m.Accounts[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("allocation %s: %w", allocationID, core.ErrNotFound)
	})
}

// AddAdjustment appends a signed adjustment. An account scope must resolve;
// a bucket scope is informational and does not change bucket totals.
func (s *PlannerService) AddAdjustment(ctx context.Context, monthID string, adj core.ManualAdjustment) (core.ManualAdjustment, error) {
	if adj.Amount.IsZero() {
		return core.ManualAdjustment{}, core.NewValidationError("amount", "must not be zero")
	}
	if adj.AccountID != "" {
		if _, err := s.accounts.Resolve(ctx, adj.AccountID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.ManualAdjustment{}, core.UnknownAccount(adj.AccountID)
			}
			return core.ManualAdjustment{}, fmt.Errorf("resolve account: %w", err)
		}
	}
	adj.Description = strings.TrimSpace(adj.Description)
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	_, err := s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		m.ManualAdjustments = append(m.ManualAdjustments, adj)
		return nil
	})
	if err != nil {
		return core.ManualAdjustment{}, err
	}
	return adj, nil
}

func (s *PlannerService) RemoveAdjustment(ctx context.Context, monthID, adjustmentID string) (core.PlannedMonth, error) {
	return s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		for i, a := range m.ManualAdjustments {
			if a.ID == adjustmentID {
				m.ManualAdjustments = append(m.ManualAdjustments[:i], m.ManualAdjustments[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("adjustment %s: %w", adjustmentID, core.ErrNotFound)
	})
}

// UpdateBucketStatus sets one bucket's status. Totals are computed on read
// so nothing else changes.
func (s *PlannerService) UpdateBucketStatus(ctx context.Context, monthID, bucketID string, status core.BucketStatus) error {
	if !status.Valid() {
		return core.NewValidationError("status", "unknown bucket status %q", status)
	}
	_, err := s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		if !s.knowsBucket(*m, bucketID) {
			return core.NewValidationError("bucket_id", "unknown bucket %q", bucketID)
		}
		if m.StatusByBucket == nil {
			m.StatusByBucket = map[string]core.BucketStatus{}
		}
		m.StatusByBucket[bucketID] = status
		return nil
	})
	return err
}

// SetDueDate sets or clears (nil) the due date of a bucket in one month.
func (s *PlannerService) SetDueDate(ctx context.Context, monthID, bucketID string, due *core.Date) error {
	_, err := s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		if !s.knowsBucket(*m, bucketID) {
			return core.NewValidationError("bucket_id", "unknown bucket %q", bucketID)
		}
		if due == nil {
			delete(m.DueDates, bucketID)
			return nil
		}
		if m.DueDates == nil {
			m.DueDates = map[string]core.Date{}
		}
		m.DueDates[bucketID] = *due
		return nil
	})
	return err
}

// BucketStatuses returns a copy of the month's explicit status map.
func (s *PlannerService) BucketStatuses(ctx context.Context, monthID string) (map[string]core.BucketStatus, error) {
	m, err := s.months.Get(ctx, monthID)
	if err != nil {
		return nil, err
	}
	return m.CloneStatuses(), nil
}

// ReplaceBucketStatuses overwrites the whole status map. It is how a bulk
// rollback restores a captured map exactly.
func (s *PlannerService) ReplaceBucketStatuses(ctx context.Context, monthID string, statuses map[string]core.BucketStatus) error {
	_, err := s.mutate(ctx, monthID, func(m *core.PlannedMonth) error {
		m.StatusByBucket = make(map[string]core.BucketStatus, len(statuses))
		for k, v := range statuses {
			m.StatusByBucket[k] = v
		}
		return nil
	})
	return err
}

func (s *PlannerService) AddOverride(ctx context.Context, entityID string, date core.Date) error {
	if strings.TrimSpace(entityID) == "" {
		return core.NewValidationError("entity_id", "must not be empty")
	}
	if err := date.Validate(); err != nil {
		return core.NewValidationError("date", "%v", err)
	}
	return s.overrides.Add(ctx, core.OverrideKey{EntityID: entityID, Date: date})
}

func (s *PlannerService) RemoveOverride(ctx context.Context, entityID string, date core.Date) error {
	return s.overrides.Remove(ctx, core.OverrideKey{EntityID: entityID, Date: date})
}

func (s *PlannerService) ListOverrides(ctx context.Context) ([]core.OverrideKey, error) {
	return s.overrides.List(ctx)
}

// OverrideSet loads the stored overrides for a read.
func (s *PlannerService) OverrideSet(ctx context.Context) (core.OverrideSet, error) {
	keys, err := s.overrides.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return core.NewOverrideSet(keys...), nil
}

// EffectiveAmount is the due-date policy evaluated against the stored
// overrides.
func (s *PlannerService) EffectiveAmount(ctx context.Context, value core.Money, dueDate *core.Date, entityID string, now time.Time) (core.Money, error) {
	overrides, err := s.OverrideSet(ctx)
	if err != nil {
		return core.Money{}, err
	}
	return EffectiveAmount(value, dueDate, core.DateOf(now), entityID, overrides), nil
}

func (s *PlannerService) knowsBucket(m core.PlannedMonth, bucketID string) bool {
	if _, ok := s.catalogue[bucketID]; ok {
		return true
	}
	return slices.Contains(m.BucketOrder, bucketID)
}

// mutate loads a month, applies fn, recomputes remaining cash and saves.
// Nothing is saved when fn fails. after runs on the saved copy.
func (s *PlannerService) mutate(ctx context.Context, monthID string, fn func(*core.PlannedMonth) error, after ...func(*core.PlannedMonth)) (core.PlannedMonth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.months.Get(ctx, monthID)
	if err != nil {
		return core.PlannedMonth{}, err
	}
	if err := fn(&m); err != nil {
		return core.PlannedMonth{}, err
	}
	RecomputeRemainingCash(&m)
	if err := s.months.Save(ctx, m); err != nil {
		return core.PlannedMonth{}, fmt.Errorf("save month: %w", err)
	}
	for _, f := range after {
		f(&m)
	}
	return m, nil
}
