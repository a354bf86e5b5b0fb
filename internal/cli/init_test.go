package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"planner/internal/config"
	"planner/internal/core"
	"planner/internal/metrics"
	"planner/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DataBackend:        "sqlite",
		SQLiteDBPath:       filepath.Join(dir, "planner.db"),
		DataDir:            dir,
		GenerationSchedule: "@every 1h",
		BucketsFile:        filepath.Join(dir, "buckets.toml"),
		AccountCacheSize:   8,
		AccountCacheTTL:    time.Minute,
		LogLevel:           "error",
	}
}

func TestBootstrapWiresServices(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	app, err := Bootstrap(ctx, cfg, SetupLogger("test", cfg.LogLevel), metrics.New())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer app.Close()

	if len(app.Buckets) != len(config.DefaultBuckets()) {
		t.Errorf("buckets = %+v", app.Buckets)
	}

	acc, err := app.Backend.Stores.Accounts.Create(ctx, core.Account{Name: "HDFC Salary"})
	if err != nil {
		t.Fatal(err)
	}
	ob, err := app.Registry.CreateRecurring(ctx, recurringRent(acc.ID))
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	report, err := app.Processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if report.Generated != 1 {
		t.Errorf("generated = %d", report.Generated)
	}
	entries, _ := app.Backend.Stores.Ledger.ListByObligation(ctx, ob.ID)
	if len(entries) != 1 {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := app.Planner.CreateMonth(ctx, core.NewDate(2025, 3, 1)); err != nil {
		t.Errorf("CreateMonth: %v", err)
	}
}

func TestBootstrapRejectsBadBucketsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.BucketsFile = t.TempDir() // a directory cannot be read as a file
	if _, err := Bootstrap(context.Background(), cfg, SetupLogger("test", "error"), nil); err == nil {
		t.Error("expected error")
	}
}

func TestSetupLoggerFallsBackOnBadLevel(t *testing.T) {
	if l := SetupLogger("test", "chatty"); l.Component() != "test" {
		t.Errorf("component = %q", l.Component())
	}
}

func recurringRent(accountID string) services.RecurringInput {
	return services.RecurringInput{
		Name:      "Rent",
		AccountID: accountID,
		Amount:    core.Money{Cents: 2500000},
		Frequency: core.Monthly,
		Category:  core.CategoryExpense,
		StartDate: core.NewDate(2025, 3, 1),
	}
}
