package services

import (
	"errors"
	"testing"
	"time"

	"planner/internal/core"
)

var testNow = time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)

func today() core.Date { return core.DateOf(testNow) }

func installment(total, completed int, start core.Date) core.Obligation {
	return core.Obligation{
		ID:                    "emi-1",
		Name:                  "Car loan",
		AccountID:             "acc-1",
		Amount:                core.Money{Cents: 1250000},
		Frequency:             core.Monthly,
		Status:                core.StatusActive,
		Kind:                  core.KindInstallment,
		StartDate:             start,
		EndDate:               (MonthStrategy{Months: 1}).Advance(start, total-1, start.Day()),
		TotalInstallments:     total,
		CompletedInstallments: completed,
	}
}

func recurring(next core.Date) core.Obligation {
	return core.Obligation{
		ID:          "rec-1",
		Name:        "Rent",
		AccountID:   "acc-1",
		Amount:      core.Money{Cents: 5000000},
		Frequency:   core.Monthly,
		Status:      core.StatusActive,
		Kind:        core.KindRecurring,
		StartDate:   next,
		NextDueDate: next,
	}
}

// apply persists a result the way the registry does.
func apply(res GenerationResult, ledger []core.LedgerEntry) []core.LedgerEntry {
	if res.NewEntry != nil {
		ledger = append(ledger, *res.NewEntry)
	}
	return ledger
}

func TestCheckAndGenerateSingleInstallment(t *testing.T) {
	ob := installment(1, 0, today().AddDays(-1))

	res, err := CheckAndGenerate(testNow, ob, nil)
	if err != nil {
		t.Fatalf("CheckAndGenerate: %v", err)
	}
	if !res.Generated() {
		t.Fatalf("expected an entry, got skip %q", res.Skip)
	}
	e := res.NewEntry
	if e.Status != core.LedgerPending || e.Amount != ob.Amount || e.AccountID != ob.AccountID {
		t.Errorf("unexpected entry: %+v", e)
	}
	if !e.Date.Equal(ob.StartDate) || e.ObligationID != ob.ID {
		t.Errorf("entry date/ref = %s/%s", e.Date, e.ObligationID)
	}
	if e.Category != core.CategoryExpense {
		t.Errorf("category = %s, want expense", e.Category)
	}
	if res.Updated.Status != core.StatusCompleted || res.Updated.CompletedInstallments != 1 {
		t.Errorf("updated = %+v", res.Updated)
	}

	// Second call with the persisted state is a no-op.
	ledger := apply(res, nil)
	again, err := CheckAndGenerate(testNow, res.Updated, ledger)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if again.Generated() {
		t.Fatal("second call generated a duplicate")
	}
	if again.Updated.CompletedInstallments != 1 || again.Updated.Status != core.StatusCompleted {
		t.Errorf("second call changed state: %+v", again.Updated)
	}
}

func TestCheckAndGenerateRecurringMonthly(t *testing.T) {
	ob := recurring(today())

	res, err := CheckAndGenerate(testNow, ob, nil)
	if err != nil {
		t.Fatalf("CheckAndGenerate: %v", err)
	}
	if !res.Generated() {
		t.Fatalf("expected an entry, got skip %q", res.Skip)
	}
	if !res.NewEntry.Date.Equal(today()) || res.NewEntry.Amount.Cents != 5000000 {
		t.Errorf("entry = %+v", res.NewEntry)
	}
	if want := core.NewDate(2025, 4, 15); !res.Updated.NextDueDate.Equal(want) {
		t.Errorf("next due = %s, want %s", res.Updated.NextDueDate, want)
	}
	if res.Updated.Status != core.StatusActive {
		t.Errorf("status = %s", res.Updated.Status)
	}

	again, _ := CheckAndGenerate(testNow, res.Updated, apply(res, nil))
	if again.Generated() || again.Skip != SkipNotDue {
		t.Errorf("second call: generated=%v skip=%q", again.Generated(), again.Skip)
	}
}

func TestCheckAndGenerateSkips(t *testing.T) {
	paused := recurring(today().AddDays(-400))
	paused.Status = core.StatusPaused

	completed := installment(3, 3, core.NewDate(2024, 1, 1))
	completed.Status = core.StatusCompleted

	exhausted := installment(2, 2, core.NewDate(2024, 1, 1))

	future := recurring(today().AddDays(1))

	pastEnd := recurring(core.NewDate(2025, 3, 1))
	pastEnd.StartDate = core.NewDate(2025, 1, 1)
	pastEnd.EndDate = core.NewDate(2025, 2, 20)

	tests := []struct {
		name       string
		ob         core.Obligation
		wantSkip   SkipReason
		wantStatus core.ObligationStatus
	}{
		{"paused long overdue", paused, SkipInactive, core.StatusPaused},
		{"completed", completed, SkipInactive, core.StatusCompleted},
		{"exhausted normalized", exhausted, SkipExhausted, core.StatusCompleted},
		{"not yet due", future, SkipNotDue, core.StatusActive},
		{"due beyond end", pastEnd, SkipPastEnd, core.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CheckAndGenerate(testNow, tt.ob, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Generated() {
				t.Fatalf("expected no entry, got %+v", res.NewEntry)
			}
			if res.Skip != tt.wantSkip {
				t.Errorf("skip = %q, want %q", res.Skip, tt.wantSkip)
			}
			if res.Updated.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", res.Updated.Status, tt.wantStatus)
			}
			if res.Updated.CompletedInstallments != tt.ob.CompletedInstallments {
				t.Errorf("progress changed on skip")
			}
		})
	}
}

func TestCheckAndGenerateReconcilesExistingEntry(t *testing.T) {
	ob := installment(3, 0, core.NewDate(2025, 1, 10))
	existing := []core.LedgerEntry{{
		ID:           "e-1",
		AccountID:    ob.AccountID,
		Category:     core.CategoryExpense,
		Date:         ob.StartDate,
		Amount:       ob.Amount,
		Status:       core.LedgerPaid,
		ObligationID: ob.ID,
	}}

	res, err := CheckAndGenerate(testNow, ob, existing)
	if err != nil {
		t.Fatal(err)
	}
	if res.Generated() {
		t.Fatal("duplicate guard did not fire")
	}
	if !res.Reconciled || res.Updated.CompletedInstallments != 1 {
		t.Errorf("expected reconciled progress, got %+v", res)
	}
}

func TestCheckAndGenerateCatchesUpOnePeriodPerCall(t *testing.T) {
	ob := installment(6, 0, core.NewDate(2025, 1, 10))
	var ledger []core.LedgerEntry

	// Jan 10, Feb 10 and Mar 10 are due on Mar 15; Apr 10 is not.
	for call := 1; call <= 5; call++ {
		res, err := CheckAndGenerate(testNow, ob, ledger)
		if err != nil {
			t.Fatalf("call %d: %v", call, err)
		}
		if res.Updated.CompletedInstallments < ob.CompletedInstallments {
			t.Fatalf("call %d: progress decreased", call)
		}
		ledger = apply(res, ledger)
		ob = res.Updated
	}

	if len(ledger) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ledger))
	}
	wantDates := []core.Date{core.NewDate(2025, 1, 10), core.NewDate(2025, 2, 10), core.NewDate(2025, 3, 10)}
	for i, want := range wantDates {
		if !ledger[i].Date.Equal(want) {
			t.Errorf("entry %d dated %s, want %s", i, ledger[i].Date, want)
		}
	}
	if ob.CompletedInstallments != 3 || ob.Status != core.StatusActive {
		t.Errorf("final state = %d/%s", ob.CompletedInstallments, ob.Status)
	}
}

func TestCheckAndGenerateRecurringCompletesAtEnd(t *testing.T) {
	ob := recurring(core.NewDate(2025, 3, 1))
	ob.StartDate = core.NewDate(2025, 1, 1)
	ob.EndDate = core.NewDate(2025, 3, 20)

	res, err := CheckAndGenerate(testNow, ob, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Generated() {
		t.Fatalf("expected entry, got skip %q", res.Skip)
	}
	if res.Updated.Status != core.StatusCompleted {
		t.Errorf("status = %s, want completed", res.Updated.Status)
	}
	if res.Updated.NextDueDate.After(ob.EndDate) {
		t.Errorf("next due %s exceeds end %s", res.Updated.NextDueDate, ob.EndDate)
	}
}

func TestCheckAndGenerateMonthEndAnchor(t *testing.T) {
	ob := recurring(core.NewDate(2025, 1, 31))
	now := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	var dates []core.Date
	for i := 0; i < 3; i++ {
		res, err := CheckAndGenerate(now, ob, nil)
		if err != nil {
			t.Fatal(err)
		}
		dates = append(dates, res.NewEntry.Date)
		ob = res.Updated
	}
	want := []core.Date{core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 31)}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %s, want %s", i, dates[i], want[i])
		}
	}
}

func TestCheckAndGenerateMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.Obligation)
	}{
		{"zero amount", func(o *core.Obligation) { o.Amount = core.Money{} }},
		{"unknown frequency", func(o *core.Obligation) { o.Frequency = "hourly" }},
		{"missing start", func(o *core.Obligation) { o.StartDate = core.Date{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := recurring(today())
			tt.mutate(&ob)
			_, err := CheckAndGenerate(testNow, ob, nil)
			var verr *core.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}
