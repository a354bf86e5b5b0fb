package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"planner/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "planner.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *SQLiteRepository) core.Account {
	t.Helper()
	acc, err := repo.Accounts().Create(context.Background(), core.Account{Name: "HDFC Salary", BankName: "HDFC"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func TestAccountStore(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	acc := seedAccount(t, repo)

	got, err := repo.Accounts().Resolve(ctx, acc.ID)
	if err != nil || got != acc {
		t.Fatalf("Resolve = %+v, %v", got, err)
	}
	if _, err := repo.Accounts().Resolve(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	byName, err := repo.Accounts().FindByName(ctx, "hdfc salary")
	if err != nil || byName.ID != acc.ID {
		t.Errorf("FindByName = %+v, %v", byName, err)
	}
	var verr *core.ValidationError
	if _, err := repo.Accounts().Create(ctx, core.Account{Name: "HDFC SALARY"}); !errors.As(err, &verr) {
		t.Errorf("duplicate name: expected ValidationError, got %v", err)
	}
}

func TestObligationStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	acc := seedAccount(t, repo)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []core.Obligation{
		{
			ID: "rec", Name: "Rent", AccountID: acc.ID, Amount: core.Money{Cents: 5000000},
			Frequency: core.Monthly, Status: core.StatusActive, Kind: core.KindRecurring,
			StartDate: core.NewDate(2025, 1, 1), NextDueDate: core.NewDate(2025, 4, 1),
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "emi", Name: "Car", AccountID: acc.ID, Amount: core.Money{Cents: 1250000},
			Frequency: core.Monthly, Status: core.StatusPaused, Kind: core.KindInstallment,
			Category: core.CategoryExpense, StartDate: core.NewDate(2025, 1, 31), EndDate: core.NewDate(2025, 12, 31),
			TotalInstallments: 12, CompletedInstallments: 3, CreatedAt: now.Add(time.Second), UpdatedAt: now,
		},
	}

	for _, want := range tests {
		t.Run(want.ID, func(t *testing.T) {
			if err := repo.Obligations().Save(ctx, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := repo.Obligations().Get(ctx, want.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}

	updated := tests[0]
	updated.NextDueDate = core.NewDate(2025, 5, 1)
	if err := repo.Obligations().Save(ctx, updated); err != nil {
		t.Fatal(err)
	}
	all, _ := repo.Obligations().List(ctx)
	if len(all) != 2 || !all[0].NextDueDate.Equal(updated.NextDueDate) {
		t.Errorf("List = %+v", all)
	}

	if err := repo.Obligations().Delete(ctx, "emi"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Obligations().Delete(ctx, "emi"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestLedgerStoreOccurrenceIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	acc := seedAccount(t, repo)
	now := time.Now().UTC()
	ob := core.Obligation{
		ID: "ob-1", Name: "Rent", AccountID: acc.ID, Amount: core.Money{Cents: 100},
		Frequency: core.Monthly, Status: core.StatusActive, Kind: core.KindRecurring,
		StartDate: core.NewDate(2025, 1, 1), NextDueDate: core.NewDate(2025, 1, 1), CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Obligations().Save(ctx, ob); err != nil {
		t.Fatal(err)
	}

	entry := core.LedgerEntry{
		AccountID: acc.ID, Category: core.CategoryExpense, Date: core.NewDate(2025, 1, 1),
		Amount: core.Money{Cents: 100}, Description: "Rent", Status: core.LedgerPending, ObligationID: ob.ID,
	}
	first, err := repo.Ledger().Create(ctx, entry)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Ledger().Create(ctx, entry); !errors.Is(err, core.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	found, err := repo.Ledger().FindByObligationAndDate(ctx, ob.ID, entry.Date)
	if err != nil || found == nil || found.ID != first.ID {
		t.Fatalf("Find = %+v, %v", found, err)
	}
	none, err := repo.Ledger().FindByObligationAndDate(ctx, ob.ID, core.NewDate(2025, 2, 1))
	if err != nil || none != nil {
		t.Errorf("expected nil, got %+v, %v", none, err)
	}

	manual := entry
	manual.ObligationID = ""
	for i := 0; i < 2; i++ {
		if _, err := repo.Ledger().Create(ctx, manual); err != nil {
			t.Fatalf("manual entry %d: %v", i, err)
		}
	}
	byAccount, _ := repo.Ledger().ListByAccount(ctx, acc.ID)
	if len(byAccount) != 3 {
		t.Errorf("ListByAccount = %d entries", len(byAccount))
	}
	if n, _ := repo.Ledger().CountByObligation(ctx, ob.ID); n != 1 {
		t.Errorf("CountByObligation = %d", n)
	}
}

func TestMonthStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	factor := 0.6

	want := core.PlannedMonth{
		ID:             "m-1",
		MonthStart:     core.NewDate(2025, 3, 1),
		InflowTotal:    &core.Money{Cents: 20000000},
		FixedFactor:    &factor,
		BucketOrder:    []string{"balance", "savings"},
		StatusByBucket: map[string]core.BucketStatus{"savings": core.BucketPaid},
		DueDates:       map[string]core.Date{"savings": core.NewDate(2025, 3, 10)},
		Accounts: []core.AccountAllocation{{
			ID:            "a-1",
			AccountID:     "hdfc",
			FixedBalance:  &core.Money{Cents: 3000000},
			BucketAmounts: map[string]*core.Money{"balance": {Cents: 10000}, "savings": nil},
			RemainingCash: core.Money{Cents: 17000000},
		}},
		ManualAdjustments: []core.ManualAdjustment{{ID: "adj", Description: "bonus", Amount: core.Money{Cents: -250}, AccountID: "hdfc"}},
	}
	if err := repo.Months().Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Months().Get(ctx, "m-1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	byStart, err := repo.Months().GetByMonthStart(ctx, core.NewDate(2025, 3, 1))
	if err != nil || byStart.ID != "m-1" {
		t.Errorf("GetByMonthStart = %+v, %v", byStart.ID, err)
	}

	clash := want.Clone()
	clash.ID = "m-2"
	var verr *core.ValidationError
	if err := repo.Months().Save(ctx, clash); !errors.As(err, &verr) {
		t.Errorf("second snapshot for the same month: expected ValidationError, got %v", err)
	}

	if err := repo.Months().Delete(ctx, "m-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Months().Get(ctx, "m-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOverrideStore(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	k := core.OverrideKey{EntityID: "savings", Date: core.NewDate(2025, 3, 10)}

	if err := repo.Overrides().Add(ctx, k); err != nil {
		t.Fatal(err)
	}
	if err := repo.Overrides().Add(ctx, k); err != nil {
		t.Fatalf("adding twice: %v", err)
	}
	keys, _ := repo.Overrides().List(ctx)
	if len(keys) != 1 || keys[0] != k {
		t.Fatalf("List = %+v", keys)
	}
	if err := repo.Overrides().Remove(ctx, k); err != nil {
		t.Fatal(err)
	}
	keys, _ = repo.Overrides().List(ctx)
	if len(keys) != 0 {
		t.Errorf("List after remove = %+v", keys)
	}
}

func TestMigrationsAreRerunnable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.db")
	for i := 0; i < 2; i++ {
		v, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if v != 1 {
			t.Errorf("run %d: version = %d, want 1", i, v)
		}
	}
}
