package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"planner/internal/cli"
	"planner/internal/services"
)

var (
	flagGenerateAt string
	flagGenerateID string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Emit ledger entries for obligations that are due",
	Long: `Runs one generation pass. Each active obligation emits at most one entry
per run, so an obligation several periods behind catches up over several runs.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagGenerateAt, "at", "", "Run as of this date (YYYY-MM-DD), default today")
	generateCmd.Flags().StringVar(&flagGenerateID, "id", "", "Only check this obligation")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	day, err := parseDay(flagGenerateAt)
	if err != nil {
		return err
	}
	now := atNoon(day)

	return withApp(cmd, func(ctx context.Context, app *cli.App) error {
		if flagGenerateID != "" {
			res, err := app.Registry.CheckAndGenerate(ctx, flagGenerateID, now)
			if err != nil {
				return err
			}
			switch {
			case res.NewEntry != nil:
				fmt.Printf("  Generated %s %s on %s\n", res.NewEntry.Description, res.NewEntry.Amount, res.NewEntry.Date)
			case res.Reconciled:
				fmt.Printf("  Entry for %s already existed, progress advanced\n", res.DueDate)
			default:
				fmt.Printf("  Nothing generated (%s)\n", res.Skip)
			}
			return nil
		}

		report, err := app.Processor.ProcessDue(ctx, now)
		if err != nil {
			return err
		}
		fmt.Printf("  Checked:    %d\n", report.Checked)
		fmt.Printf("  Generated:  %d\n", report.Generated)
		fmt.Printf("  Reconciled: %d\n", report.Reconciled)

		reasons := make([]string, 0, len(report.Skipped))
		for r := range report.Skipped {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Printf("  Skipped (%s): %d\n", r, report.Skipped[services.SkipReason(r)])
		}

		for _, e := range report.Entries {
			fmt.Printf("    + %s  %-24s %12s\n", e.Date, e.Description, e.Amount)
		}
		for _, f := range report.Failures {
			fmt.Printf("    ! %s: %v\n", f.ObligationID, f.Err)
		}
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d obligations failed", len(report.Failures))
		}
		return nil
	})
}
