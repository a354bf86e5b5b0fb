package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"planner/internal/cli"
	"planner/internal/core"
	"planner/internal/services"
)

var monthFlags struct {
	effective   bool
	today       string
	account     string
	bucket      string
	description string
	fixed       string
	savings     string
	amounts     []string
}

var monthCmd = &cobra.Command{
	Use:   "month",
	Short: "Plan a month's inflow, allocations and bucket statuses",
}

var monthCreateCmd = &cobra.Command{
	Use:   "create YYYY-MM",
	Short: "Start planning a month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseMonth(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := app.Planner.CreateMonth(ctx, start)
			if err != nil {
				return err
			}
			fmt.Printf("  Planned %s with %d buckets\n", m.MonthStart, len(m.BucketOrder))
			return nil
		})
	},
}

var monthListCmd = &cobra.Command{
	Use:   "list",
	Short: "List planned months",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			months, err := app.Planner.ListMonths(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MONTH\tINFLOW\tACCOUNTS\tADJUSTMENTS")
			for _, m := range months {
				inflow := "-"
				if m.InflowTotal != nil {
					inflow = m.InflowTotal.String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", m.MonthStart, inflow, len(m.Accounts), len(m.ManualAdjustments))
			}
			return tw.Flush()
		})
	},
}

var monthDeleteCmd = &cobra.Command{
	Use:   "delete YYYY-MM",
	Short: "Delete a planned month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			return app.Planner.DeleteMonth(ctx, m.ID)
		})
	},
}

var monthInflowCmd = &cobra.Command{
	Use:   "inflow YYYY-MM AMOUNT",
	Short: "Set the month's total inflow (use - to clear)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			var inflow *core.Money
			if args[1] != "-" {
				if inflow, err = optionalAmount(args[1]); err != nil {
					return err
				}
			}
			_, err = app.Planner.SetInflow(ctx, m.ID, inflow)
			return err
		})
	},
}

var monthFactorCmd = &cobra.Command{
	Use:   "factor YYYY-MM FACTOR",
	Short: "Set the fixed factor (use - to clear)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			var factor *float64
			if args[1] != "-" {
				f, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("factor %q: %w", args[1], err)
				}
				factor = &f
			}
			_, err = app.Planner.SetFixedFactor(ctx, m.ID, factor)
			return err
		})
	},
}

var monthAllocateCmd = &cobra.Command{
	Use:     "allocate YYYY-MM",
	Short:   "Set one account's fixed balance, savings transfer and bucket amounts",
	Example: `  planner month allocate 2025-03 --account "HDFC Salary" --fixed 30000 --savings 18750 --amount loan_emi=12500`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			acc, err := resolveAccount(ctx, app, monthFlags.account)
			if err != nil {
				return err
			}
			in := services.AllocationInput{AccountID: acc.ID, BucketAmounts: map[string]*core.Money{}}
			for _, a := range m.Accounts {
				if a.AccountID == acc.ID {
					in.ID = a.ID
					in.FixedBalance = a.FixedBalance
					in.SavingsTransfer = a.SavingsTransfer
					for k, v := range a.BucketAmounts {
						in.BucketAmounts[k] = v
					}
				}
			}
			if cmd.Flags().Changed("fixed") {
				if in.FixedBalance, err = optionalAmount(monthFlags.fixed); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("savings") {
				if in.SavingsTransfer, err = optionalAmount(monthFlags.savings); err != nil {
					return err
				}
			}
			for _, kv := range monthFlags.amounts {
				bucket, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--amount %q: expected BUCKET=AMOUNT", kv)
				}
				if value == "-" {
					in.BucketAmounts[bucket] = nil
					continue
				}
				if in.BucketAmounts[bucket], err = optionalAmount(value); err != nil {
					return err
				}
			}

			alloc, err := app.Planner.UpsertAllocation(ctx, m.ID, in)
			if err != nil {
				return err
			}
			fmt.Printf("  %s remaining cash: %s\n", acc.Name, alloc.RemainingCash)
			return nil
		})
	},
}

var monthUnallocateCmd = &cobra.Command{
	Use:   "unallocate YYYY-MM",
	Short: "Remove an account's allocation from the month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			acc, err := resolveAccount(ctx, app, monthFlags.account)
			if err != nil {
				return err
			}
			removed := 0
			for _, a := range m.Accounts {
				if a.AccountID != acc.ID {
					continue
				}
				if _, err := app.Planner.RemoveAllocation(ctx, m.ID, a.ID); err != nil {
					return err
				}
				removed++
			}
			if removed == 0 {
				return fmt.Errorf("%s has no allocation in %s: %w", acc.Name, m.MonthStart, core.ErrNotFound)
			}
			fmt.Printf("  Removed %s from %s\n", acc.Name, m.MonthStart)
			return nil
		})
	},
}

var monthTotalsCmd = &cobra.Command{
	Use:   "totals YYYY-MM",
	Short: "Show per-bucket totals split by status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			var totals core.BucketTotals
			if monthFlags.effective {
				today, err := parseDay(monthFlags.today)
				if err != nil {
					return err
				}
				totals, err = app.Planner.EffectiveBucketTotals(ctx, m.ID, today)
				if err != nil {
					return err
				}
			} else if totals, err = app.Planner.BucketTotals(ctx, m.ID); err != nil {
				return err
			}

			statuses, err := app.Planner.BucketStatuses(ctx, m.ID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "BUCKET\tSTATUS\tPENDING\tPAID\tTOTAL\t")
			for _, b := range bucketColumns(m, totals) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", b, statuses[b], totals.Pending[b], totals.Paid[b], totals.All[b])
			}
			return tw.Flush()
		})
	},
}

var monthRemainingCmd = &cobra.Command{
	Use:   "remaining YYYY-MM [ACCOUNT]",
	Short: "Show remaining cash per account",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(m.Accounts))
			if len(args) == 2 {
				acc, err := resolveAccount(ctx, app, args[1])
				if err != nil {
					return err
				}
				ids = append(ids, acc.ID)
			} else {
				for _, a := range m.Accounts {
					if !slices.Contains(ids, a.AccountID) {
						ids = append(ids, a.AccountID)
					}
				}
			}
			for _, id := range ids {
				cash, err := app.Planner.RemainingCash(ctx, id, m.ID)
				if err != nil {
					return err
				}
				name := id
				if acc, err := app.Backend.Stores.Accounts.Resolve(ctx, id); err == nil {
					name = acc.Name
				}
				fmt.Printf("  %-24s %14s\n", name, cash)
			}
			return nil
		})
	},
}

var monthStatusCmd = &cobra.Command{
	Use:     "status YYYY-MM:BUCKET=STATUS...",
	Short:   "Change bucket statuses across months, all or nothing",
	Example: `  planner month status 2025-03:loan_emi=paid 2025-04:loan_emi=paid`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			changes := make([]services.BucketStatusChange, 0, len(args))
			for _, arg := range args {
				month, rest, ok1 := strings.Cut(arg, ":")
				bucket, status, ok2 := strings.Cut(rest, "=")
				if !ok1 || !ok2 {
					return fmt.Errorf("%q: expected YYYY-MM:BUCKET=STATUS", arg)
				}
				m, err := resolveMonth(ctx, app, month)
				if err != nil {
					return err
				}
				changes = append(changes, services.BucketStatusChange{
					MonthID:  m.ID,
					BucketID: bucket,
					Status:   core.BucketStatus(strings.ToLower(status)),
				})
			}

			res := app.Bulk.Execute(ctx, changes)
			fmt.Printf("  %s: %d applied, %d failed\n", res.State, res.SuccessCount, res.ErrorCount)
			if res.Notice != "" {
				fmt.Printf("  %s\n", res.Notice)
			}
			for _, e := range res.Errors {
				fmt.Printf("    ! %v\n", e)
			}
			if res.State != services.BulkCommitted {
				return fmt.Errorf("bulk update %s", res.State)
			}
			return nil
		})
	},
}

var monthDueCmd = &cobra.Command{
	Use:   "due YYYY-MM BUCKET DATE",
	Short: "Set a bucket's due date for the month (use - to clear)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			var due *core.Date
			if args[2] != "-" {
				d, err := core.ParseDate(args[2])
				if err != nil {
					return err
				}
				due = &d
			}
			return app.Planner.SetDueDate(ctx, m.ID, args[1], due)
		})
	},
}

var monthAdjustCmd = &cobra.Command{
	Use:   "adjust YYYY-MM AMOUNT",
	Short: "Record a signed manual adjustment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			m, err := resolveMonth(ctx, app, args[0])
			if err != nil {
				return err
			}
			amount, err := core.ParseSignedAmount(args[1])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[1], err)
			}
			adj := core.ManualAdjustment{Description: monthFlags.description, Amount: amount, BucketID: monthFlags.bucket}
			if monthFlags.account != "" {
				acc, err := resolveAccount(ctx, app, monthFlags.account)
				if err != nil {
					return err
				}
				adj.AccountID = acc.ID
			}
			saved, err := app.Planner.AddAdjustment(ctx, m.ID, adj)
			if err != nil {
				return err
			}
			fmt.Printf("  Added adjustment %s (%s)\n", saved.ID, saved.Amount)
			return nil
		})
	},
}

// bucketColumns lists the month's buckets in display order followed by any
// bucket that only appears in the totals.
func bucketColumns(m core.PlannedMonth, totals core.BucketTotals) []string {
	cols := slices.Clone(m.BucketOrder)
	var extra []string
	for b := range totals.All {
		if !slices.Contains(cols, b) {
			extra = append(extra, b)
		}
	}
	slices.Sort(extra)
	return append(cols, extra...)
}

func init() {
	monthTotalsCmd.Flags().BoolVar(&monthFlags.effective, "effective", false, "Drop amounts past their due date unless overridden")
	monthTotalsCmd.Flags().StringVar(&monthFlags.today, "today", "", "Reference date for --effective (YYYY-MM-DD)")

	monthAllocateCmd.Flags().StringVar(&monthFlags.account, "account", "", "Account id or name")
	monthAllocateCmd.Flags().StringVar(&monthFlags.fixed, "fixed", "", "Fixed balance kept in the account")
	monthAllocateCmd.Flags().StringVar(&monthFlags.savings, "savings", "", "Savings transfer out of the account")
	monthAllocateCmd.Flags().StringArrayVar(&monthFlags.amounts, "amount", nil, "BUCKET=AMOUNT, repeatable; AMOUNT - clears")
	_ = monthAllocateCmd.MarkFlagRequired("account")

	monthUnallocateCmd.Flags().StringVar(&monthFlags.account, "account", "", "Account id or name")
	_ = monthUnallocateCmd.MarkFlagRequired("account")

	monthAdjustCmd.Flags().StringVar(&monthFlags.description, "description", "", "What the adjustment is for")
	monthAdjustCmd.Flags().StringVar(&monthFlags.account, "account", "", "Account the adjustment applies to")
	monthAdjustCmd.Flags().StringVar(&monthFlags.bucket, "bucket", "", "Bucket the adjustment is noted against")

	monthCmd.AddCommand(
		monthCreateCmd,
		monthListCmd,
		monthDeleteCmd,
		monthInflowCmd,
		monthFactorCmd,
		monthAllocateCmd,
		monthUnallocateCmd,
		monthTotalsCmd,
		monthRemainingCmd,
		monthStatusCmd,
		monthDueCmd,
		monthAdjustCmd,
	)
	rootCmd.AddCommand(monthCmd)
}
