package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"planner/internal/cli"
	"planner/internal/config"
	"planner/internal/core"
	plog "planner/internal/log"
	"planner/internal/metrics"
)

var (
	flagBackend string
	flagDBPath  string
	flagBuckets string
)

var rootCmd = &cobra.Command{
	Use:           "planner",
	Short:         "Recurring obligations and monthly budget planning",
	Long:          "Track recurring payments and EMIs, generate their ledger entries, and plan each month's bucket allocations per account.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Data backend (memory|sqlite), overrides DATA_BACKEND")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path, overrides SQLITE_DB_PATH")
	rootCmd.PersistentFlags().StringVar(&flagBuckets, "buckets", "", "Bucket catalogue file, overrides BUCKETS_FILE")
}

func loadConfig() (*config.Config, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if flagBackend != "" {
		cfg.DataBackend = flagBackend
	}
	if flagDBPath != "" {
		cfg.SQLiteDBPath = flagDBPath
	}
	if flagBuckets != "" {
		cfg.BucketsFile = flagBuckets
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp opens the backend, runs fn and closes the backend again.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(plog.ComponentCLI, cfg.LogLevel)
	ctx := cmd.Context()

	app, err := cli.Bootstrap(ctx, cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Cleanup failed", "error", err)
		}
	}()
	return fn(ctx, app)
}

// parseDay parses YYYY-MM-DD; an empty string means today.
func parseDay(s string) (core.Date, error) {
	if s == "" {
		return core.DateOf(time.Now()), nil
	}
	return core.ParseDate(s)
}

// parseMonth accepts YYYY-MM or any date inside the month.
func parseMonth(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) == 7 {
		s += "-01"
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("month %q: expected YYYY-MM", s)
	}
	return d.MonthStart(), nil
}

func resolveMonth(ctx context.Context, app *cli.App, s string) (core.PlannedMonth, error) {
	start, err := parseMonth(s)
	if err != nil {
		return core.PlannedMonth{}, err
	}
	return app.Planner.GetMonthByStart(ctx, start)
}

// resolveAccount accepts an account id or its name.
func resolveAccount(ctx context.Context, app *cli.App, s string) (core.Account, error) {
	accounts := app.Backend.Stores.Accounts
	if acc, err := accounts.Resolve(ctx, s); err == nil {
		return acc, nil
	}
	return accounts.FindByName(ctx, s)
}

func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("amount %q: %w", s, err)
	}
	return core.Money{Cents: cents}, nil
}

// optionalAmount parses s, treating an empty string as unset.
func optionalAmount(s string) (*core.Money, error) {
	if s == "" {
		return nil, nil
	}
	m, err := core.ParseSignedAmount(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return &m, nil
}

// atNoon turns a calendar day into the instant generation runs at.
func atNoon(d core.Date) time.Time {
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), 12, 0, 0, 0, time.UTC)
}
