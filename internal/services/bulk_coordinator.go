package services

import (
	"context"
	"fmt"
	"log/slog"

	"planner/internal/core"
	"planner/internal/metrics"
)

// BulkState is the coordinator's state machine:
// Captured -> Applying -> Committed | RolledBack.
type BulkState string

const (
	BulkCaptured   BulkState = "captured"
	BulkApplying   BulkState = "applying"
	BulkCommitted  BulkState = "committed"
	BulkRolledBack BulkState = "rolled_back"
)

const rollbackNotice = "bulk update rolled back: no changes were kept"

// BucketStatusStore is what the coordinator mutates. PlannerService
// implements it.
type BucketStatusStore interface {
	BucketStatuses(ctx context.Context, monthID string) (map[string]core.BucketStatus, error)
	UpdateBucketStatus(ctx context.Context, monthID, bucketID string, status core.BucketStatus) error
	ReplaceBucketStatuses(ctx context.Context, monthID string, statuses map[string]core.BucketStatus) error
}

type BucketStatusChange struct {
	MonthID  string
	BucketID string
	Status   core.BucketStatus
}

// BulkError ties a failure to the position of the change that caused it.
type BulkError struct {
	Index  int
	Change BucketStatusChange
	Err    error
}

func (e BulkError) Error() string {
	return fmt.Sprintf("change %d (month %s, bucket %s): %v", e.Index, e.Change.MonthID, e.Change.BucketID, e.Err)
}

func (e BulkError) Unwrap() error { return e.Err }

type BulkResult struct {
	State          BulkState
	SuccessCount   int
	ErrorCount     int
	Errors         []BulkError
	Notice         string
	RollbackErrors []error
}

// BulkCoordinator applies a batch of bucket status changes all or nothing.
type BulkCoordinator struct {
	store   BucketStatusStore
	metrics *metrics.Metrics
}

func NewBulkCoordinator(store BucketStatusStore, m *metrics.Metrics) *BulkCoordinator {
	return &BulkCoordinator{store: store, metrics: m}
}

// Execute captures the status map of every target month, applies the
// changes in order and keeps them only if all succeeded. On any failure
// every captured map is restored and SuccessCount is 0. Failures are
// reported in the result, never returned.
func (c *BulkCoordinator) Execute(ctx context.Context, changes []BucketStatusChange) BulkResult {
	res := BulkResult{State: BulkCaptured}

	captured := make(map[string]map[string]core.BucketStatus)
	var order []string
	for i, ch := range changes {
		if _, ok := captured[ch.MonthID]; ok {
			continue
		}
		statuses, err := c.store.BucketStatuses(ctx, ch.MonthID)
		if err != nil {
			// Nothing has been mutated yet; a month that cannot be read fails
			// the batch before Applying.
			res.Errors = append(res.Errors, BulkError{Index: i, Change: ch, Err: err})
			continue
		}
		captured[ch.MonthID] = statuses
		order = append(order, ch.MonthID)
	}
	if len(res.Errors) > 0 {
		return c.finish(ctx, res)
	}

	res.State = BulkApplying
	for i, ch := range changes {
		if err := c.store.UpdateBucketStatus(ctx, ch.MonthID, ch.BucketID, ch.Status); err != nil {
			res.Errors = append(res.Errors, BulkError{Index: i, Change: ch, Err: err})
		}
	}

	if len(res.Errors) == 0 {
		res.State = BulkCommitted
		res.SuccessCount = len(changes)
		return c.finish(ctx, res)
	}

	for _, monthID := range order {
		if err := c.store.ReplaceBucketStatuses(ctx, monthID, captured[monthID]); err != nil {
			res.RollbackErrors = append(res.RollbackErrors, fmt.Errorf("restore month %s: %w", monthID, err))
		}
	}
	return c.finish(ctx, res)
}

func (c *BulkCoordinator) finish(ctx context.Context, res BulkResult) BulkResult {
	res.ErrorCount = len(res.Errors)
	if res.ErrorCount > 0 {
		res.State = BulkRolledBack
		res.SuccessCount = 0
		res.Notice = rollbackNotice
		slog.WarnContext(ctx, "Bulk status update rolled back",
			"errors", res.ErrorCount,
			"rollback_errors", len(res.RollbackErrors))
		for _, err := range res.RollbackErrors {
			slog.ErrorContext(ctx, "Failed to restore captured statuses", "error", err)
		}
	} else {
		slog.InfoContext(ctx, "Bulk status update committed", "changes", res.SuccessCount)
	}
	c.metrics.IncrBulk(string(res.State))
	return res
}
