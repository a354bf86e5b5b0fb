package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"planner/internal/core"
)

func TestPlannerCreateMonth(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)

	m, err := p.CreateMonth(ctx, core.NewDate(2025, 3, 17))
	if err != nil {
		t.Fatal(err)
	}
	if !m.MonthStart.Equal(core.NewDate(2025, 3, 1)) {
		t.Errorf("month start = %s", m.MonthStart)
	}
	if len(m.BucketOrder) != 2 || m.StatusByBucket["savings"] != core.BucketPending {
		t.Errorf("month = %+v", m)
	}

	var verr *core.ValidationError
	if _, err := p.CreateMonth(ctx, core.NewDate(2025, 3, 1)); !errors.As(err, &verr) {
		t.Errorf("duplicate month: expected ValidationError, got %v", err)
	}
}

func TestPlannerMutationsRecomputeRemainingCash(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	m, err := p.CreateMonth(ctx, core.NewDate(2025, 4, 1))
	if err != nil {
		t.Fatal(err)
	}

	alloc, err := p.UpsertAllocation(ctx, m.ID, AllocationInput{
		AccountID:       "hdfc",
		FixedBalance:    cents(3000000),
		SavingsTransfer: cents(1000000),
		BucketAmounts:   map[string]*core.Money{"balance": cents(50000), "travel": cents(20000)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if alloc.RemainingCash.Cents != -4000000 {
		t.Errorf("remaining before inflow = %d", alloc.RemainingCash.Cents)
	}

	steps := []struct {
		name string
		run  func() error
		want int64
	}{
		{"set inflow", func() error {
			_, err := p.SetInflow(ctx, m.ID, cents(10000000))
			return err
		}, 6000000},
		{"add adjustment", func() error {
			_, err := p.AddAdjustment(ctx, m.ID, core.ManualAdjustment{Description: "cashback", Amount: core.Money{Cents: 12345}, AccountID: "hdfc"})
			return err
		}, 6012345},
		{"unrelated adjustment", func() error {
			_, err := p.AddAdjustment(ctx, m.ID, core.ManualAdjustment{Description: "other", Amount: core.Money{Cents: -500}, AccountID: "icici"})
			return err
		}, 6012345},
		{"edit allocation", func() error {
			_, err := p.UpsertAllocation(ctx, m.ID, AllocationInput{ID: alloc.ID, AccountID: "hdfc", FixedBalance: cents(2500000)})
			return err
		}, 7512345},
	}

	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			if err := st.run(); err != nil {
				t.Fatal(err)
			}
			stored, _ := p.GetMonth(ctx, m.ID)
			a, ok := stored.Allocation(alloc.ID)
			if !ok {
				t.Fatal("allocation missing")
			}
			if a.RemainingCash.Cents != st.want {
				t.Errorf("cached remaining = %d, want %d", a.RemainingCash.Cents, st.want)
			}
			live, _ := p.RemainingCash(ctx, "hdfc", m.ID)
			if live != a.RemainingCash {
				t.Errorf("cache %d differs from recomputed %d", a.RemainingCash.Cents, live.Cents)
			}
		})
	}

	stored, _ := p.GetMonth(ctx, m.ID)
	if len(stored.BucketOrder) != 3 || stored.BucketOrder[2] != "travel" {
		t.Errorf("bucket order = %v", stored.BucketOrder)
	}

	adjID := stored.ManualAdjustments[0].ID
	if _, err := p.RemoveAdjustment(ctx, m.ID, adjID); err != nil {
		t.Fatal(err)
	}
	if got, _ := p.RemainingCash(ctx, "hdfc", m.ID); got.Cents != 7500000 {
		t.Errorf("after removing adjustment = %d", got.Cents)
	}
}

func TestPlannerValidation(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	m, _ := p.CreateMonth(ctx, core.NewDate(2025, 5, 1))

	tests := []struct {
		name string
		run  func() error
	}{
		{"zero adjustment", func() error {
			_, err := p.AddAdjustment(ctx, m.ID, core.ManualAdjustment{AccountID: "hdfc"})
			return err
		}},
		{"unknown bucket status", func() error {
			return p.UpdateBucketStatus(ctx, m.ID, "balance", core.BucketStatus("overdue"))
		}},
		{"unknown bucket", func() error {
			return p.UpdateBucketStatus(ctx, m.ID, "nope", core.BucketPaid)
		}},
		{"empty override entity", func() error {
			return p.AddOverride(ctx, " ", core.NewDate(2025, 5, 10))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *core.ValidationError
			if err := tt.run(); !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestPlannerRejectsUnknownAccount(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	m, _ := p.CreateMonth(ctx, core.NewDate(2025, 5, 1))

	var rerr *core.ReferentialIntegrityError
	if _, err := p.UpsertAllocation(ctx, m.ID, AllocationInput{AccountID: "nope"}); !errors.As(err, &rerr) {
		t.Errorf("allocation: expected ReferentialIntegrityError, got %v", err)
	}
	adj := core.ManualAdjustment{Amount: core.Money{Cents: 100}, AccountID: "nope"}
	if _, err := p.AddAdjustment(ctx, m.ID, adj); !errors.As(err, &rerr) {
		t.Errorf("adjustment: expected ReferentialIntegrityError, got %v", err)
	}
}

func TestPlannerEffectiveTotalsUseStoredOverrides(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	m, _ := p.CreateMonth(ctx, core.NewDate(2025, 6, 1))
	due := core.NewDate(2025, 6, 5)

	if _, err := p.UpsertAllocation(ctx, m.ID, AllocationInput{
		AccountID:     "icici",
		BucketAmounts: map[string]*core.Money{"savings": cents(800000)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetDueDate(ctx, m.ID, "savings", &due); err != nil {
		t.Fatal(err)
	}

	late := core.NewDate(2025, 6, 20)
	totals, _ := p.EffectiveBucketTotals(ctx, m.ID, late)
	if totals.All["savings"].Cents != 0 {
		t.Errorf("past due savings = %d, want 0", totals.All["savings"].Cents)
	}
	raw, _ := p.BucketTotals(ctx, m.ID)
	if raw.All["savings"].Cents != 800000 {
		t.Errorf("raw totals must ignore due dates, got %d", raw.All["savings"].Cents)
	}

	if err := p.AddOverride(ctx, "savings", due); err != nil {
		t.Fatal(err)
	}
	totals, _ = p.EffectiveBucketTotals(ctx, m.ID, late)
	if totals.All["savings"].Cents != 800000 {
		t.Errorf("overridden savings = %d", totals.All["savings"].Cents)
	}
	amount, _ := p.EffectiveAmount(ctx, core.Money{Cents: 800000}, &due, "savings", time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC))
	if amount.Cents != 800000 {
		t.Errorf("EffectiveAmount = %d", amount.Cents)
	}

	stored, _ := p.GetMonth(ctx, m.ID)
	if stored.Accounts[0].BucketAmounts["savings"].Cents != 800000 {
		t.Errorf("policy leaked into the snapshot")
	}
}

func TestPlannerRemoveAllocation(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	m, _ := p.CreateMonth(ctx, core.NewDate(2025, 8, 1))
	if _, err := p.SetInflow(ctx, m.ID, cents(10000000)); err != nil {
		t.Fatal(err)
	}
	hdfc, err := p.UpsertAllocation(ctx, m.ID, AllocationInput{AccountID: "hdfc", FixedBalance: cents(3000000)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.UpsertAllocation(ctx, m.ID, AllocationInput{AccountID: "icici", FixedBalance: cents(1000000)}); err != nil {
		t.Fatal(err)
	}

	updated, err := p.RemoveAllocation(ctx, m.ID, hdfc.ID)
	if err != nil {
		t.Fatalf("RemoveAllocation: %v", err)
	}
	if len(updated.Accounts) != 1 || updated.Accounts[0].AccountID != "icici" {
		t.Fatalf("accounts after remove = %+v", updated.Accounts)
	}
	if got := updated.Accounts[0].RemainingCash.Cents; got != 9000000 {
		t.Errorf("icici remaining = %d, want 9000000", got)
	}
	if _, err := p.RemoveAllocation(ctx, m.ID, hdfc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second remove: expected ErrNotFound, got %v", err)
	}
}

func TestPlannerDeleteMonth(t *testing.T) {
	ctx := context.Background()
	p := newTestPlanner(t)
	m, _ := p.CreateMonth(ctx, core.NewDate(2025, 7, 1))

	if err := p.DeleteMonth(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := p.GetMonth(ctx, m.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
