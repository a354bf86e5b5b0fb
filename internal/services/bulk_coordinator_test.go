package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"planner/internal/core"
	"planner/internal/memory"
)

var testBuckets = []core.Bucket{
	{ID: "balance", Name: "Balance", DefaultStatus: core.BucketPending},
	{ID: "savings", Name: "Savings", DefaultStatus: core.BucketPending},
}

func newTestPlanner(t *testing.T) *PlannerService {
	t.Helper()
	stores := memory.New([]core.Account{{ID: "hdfc", Name: "HDFC Salary"}, {ID: "icici", Name: "ICICI Joint"}})
	return NewPlannerService(stores.Months, stores.Overrides, stores.Accounts, testBuckets)
}

// failingStatusStore fails UpdateBucketStatus for one month.
type failingStatusStore struct {
	BucketStatusStore
	failMonth string
}

func (f *failingStatusStore) UpdateBucketStatus(ctx context.Context, monthID, bucketID string, status core.BucketStatus) error {
	if monthID == f.failMonth {
		return errors.New("write rejected")
	}
	return f.BucketStatusStore.UpdateBucketStatus(ctx, monthID, bucketID, status)
}

func threeMonths(t *testing.T, p *PlannerService) []core.PlannedMonth {
	t.Helper()
	ctx := context.Background()
	var months []core.PlannedMonth
	for i := 1; i <= 3; i++ {
		m, err := p.CreateMonth(ctx, core.NewDate(2025, i, 1))
		if err != nil {
			t.Fatal(err)
		}
		months = append(months, m)
	}
	return months
}

func TestBulkRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	months := threeMonths(t, p)

	before := map[string]map[string]core.BucketStatus{}
	for _, m := range months {
		before[m.ID], _ = p.BucketStatuses(ctx, m.ID)
	}

	coord := NewBulkCoordinator(&failingStatusStore{BucketStatusStore: p, failMonth: months[1].ID}, nil)
	var changes []BucketStatusChange
	for _, m := range months {
		changes = append(changes, BucketStatusChange{MonthID: m.ID, BucketID: "balance", Status: core.BucketPaid})
	}

	res := coord.Execute(ctx, changes)

	if res.State != BulkRolledBack || res.SuccessCount != 0 || res.ErrorCount != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Errors[0].Index != 1 || res.Notice == "" {
		t.Errorf("errors = %+v notice = %q", res.Errors, res.Notice)
	}
	for _, m := range months {
		after, _ := p.BucketStatuses(ctx, m.ID)
		if !reflect.DeepEqual(after, before[m.ID]) {
			t.Errorf("month %s: statuses %v, want %v", m.MonthStart, after, before[m.ID])
		}
	}
}

func TestBulkCommits(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	months := threeMonths(t, p)

	coord := NewBulkCoordinator(p, nil)
	res := coord.Execute(ctx, []BucketStatusChange{
		{MonthID: months[0].ID, BucketID: "savings", Status: core.BucketPaid},
		{MonthID: months[0].ID, BucketID: "balance", Status: core.BucketPaid},
		{MonthID: months[2].ID, BucketID: "savings", Status: core.BucketPaid},
	})

	if res.State != BulkCommitted || res.SuccessCount != 3 || res.ErrorCount != 0 {
		t.Fatalf("result = %+v", res)
	}
	got, _ := p.BucketStatuses(ctx, months[0].ID)
	if got["savings"] != core.BucketPaid || got["balance"] != core.BucketPaid {
		t.Errorf("month 0 statuses = %v", got)
	}
	untouched, _ := p.BucketStatuses(ctx, months[1].ID)
	if untouched["savings"] != core.BucketPending {
		t.Errorf("month 1 changed: %v", untouched)
	}
}

func TestBulkValidationFailureRollsBackEarlierChanges(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	months := threeMonths(t, p)

	res := NewBulkCoordinator(p, nil).Execute(ctx, []BucketStatusChange{
		{MonthID: months[0].ID, BucketID: "balance", Status: core.BucketPaid},
		{MonthID: months[0].ID, BucketID: "unknown", Status: core.BucketPaid},
	})

	if res.State != BulkRolledBack || res.ErrorCount != 1 {
		t.Fatalf("result = %+v", res)
	}
	var verr *core.ValidationError
	if !errors.As(res.Errors[0], &verr) {
		t.Errorf("expected ValidationError, got %v", res.Errors[0].Err)
	}
	got, _ := p.BucketStatuses(ctx, months[0].ID)
	if got["balance"] != core.BucketPending {
		t.Errorf("first change survived rollback: %v", got)
	}
}

func TestBulkUnknownMonthFailsBeforeApplying(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	months := threeMonths(t, p)

	res := NewBulkCoordinator(p, nil).Execute(ctx, []BucketStatusChange{
		{MonthID: months[0].ID, BucketID: "balance", Status: core.BucketPaid},
		{MonthID: "missing", BucketID: "balance", Status: core.BucketPaid},
	})

	if res.State != BulkRolledBack || !errors.Is(res.Errors[0], core.ErrNotFound) {
		t.Fatalf("result = %+v", res)
	}
	got, _ := p.BucketStatuses(ctx, months[0].ID)
	if got["balance"] != core.BucketPending {
		t.Errorf("change applied despite capture failure: %v", got)
	}
}
