package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"planner/internal/cli"
	"planner/internal/core"
	"planner/internal/services"
)

var obligationFlags struct {
	name, account, amount, frequency, category string
	start, end                                 string
	total, completed                           int
}

var obligationsCmd = &cobra.Command{
	Use:     "obligations",
	Aliases: []string{"ob"},
	Short:   "Manage recurring payments and installment plans",
}

var obligationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List obligations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			obs, err := app.Registry.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tAMOUNT\tFREQUENCY\tSTATUS\tNEXT DUE\tPROGRESS")
			for _, o := range obs {
				progress := "-"
				if o.Kind == core.KindInstallment {
					progress = fmt.Sprintf("%d/%d", o.CompletedInstallments, o.TotalInstallments)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					o.ID, o.Name, o.Kind, o.Amount, o.Frequency, o.Status, o.NextDueDate, progress)
			}
			return tw.Flush()
		})
	},
}

var addRecurringCmd = &cobra.Command{
	Use:   "add-recurring",
	Short: "Add an open-ended or dated recurring payment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			common, err := obligationCommon(ctx, app)
			if err != nil {
				return err
			}
			var end core.Date
			if obligationFlags.end != "" {
				if end, err = core.ParseDate(obligationFlags.end); err != nil {
					return err
				}
			}
			ob, err := app.Registry.CreateRecurring(ctx, services.RecurringInput{
				Name:      obligationFlags.name,
				AccountID: common.account.ID,
				Amount:    common.amount,
				Frequency: common.frequency,
				Category:  core.LedgerCategory(obligationFlags.category),
				StartDate: common.start,
				EndDate:   end,
			})
			if err != nil {
				return err
			}
			fmt.Printf("  Created %s (%s), next due %s\n", ob.Name, ob.ID, ob.NextDueDate)
			return nil
		})
	},
}

var addInstallmentCmd = &cobra.Command{
	Use:   "add-installment",
	Short: "Add an EMI with a fixed number of installments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			common, err := obligationCommon(ctx, app)
			if err != nil {
				return err
			}
			ob, err := app.Registry.CreateInstallment(ctx, services.InstallmentInput{
				Name:                  obligationFlags.name,
				AccountID:             common.account.ID,
				Amount:                common.amount,
				Frequency:             common.frequency,
				Category:              core.LedgerCategory(obligationFlags.category),
				StartDate:             common.start,
				TotalInstallments:     obligationFlags.total,
				CompletedInstallments: obligationFlags.completed,
			})
			if err != nil {
				return err
			}
			fmt.Printf("  Created %s (%s), %d/%d paid, ends %s\n",
				ob.Name, ob.ID, ob.CompletedInstallments, ob.TotalInstallments, ob.EndDate)
			return nil
		})
	},
}

var updateObligationCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change an obligation's name, amount, end date or installment count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			var upd services.ObligationUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = &obligationFlags.name
			}
			if flags.Changed("amount") {
				amount, err := parseAmount(obligationFlags.amount)
				if err != nil {
					return err
				}
				upd.Amount = &amount
			}
			if flags.Changed("end") {
				end, err := core.ParseDate(obligationFlags.end)
				if err != nil {
					return err
				}
				upd.EndDate = &end
			}
			if flags.Changed("total") {
				upd.TotalInstallments = &obligationFlags.total
			}
			ob, err := app.Registry.Update(ctx, args[0], upd)
			if err != nil {
				return err
			}
			fmt.Printf("  Updated %s: %s %s, status %s\n", ob.ID, ob.Name, ob.Amount, ob.Status)
			return nil
		})
	},
}

func statusCommand(use, short string, apply func(*services.ObligationRegistry, context.Context, string) (core.Obligation, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *cli.App) error {
				ob, err := apply(app.Registry, ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("  %s is now %s\n", ob.Name, ob.Status)
				return nil
			})
		},
	}
}

var deleteObligationCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an obligation that has no ledger entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := app.Registry.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("  Deleted %s\n", args[0])
			return nil
		})
	},
}

type obligationArgs struct {
	account   core.Account
	amount    core.Money
	frequency core.Frequency
	start     core.Date
}

func obligationCommon(ctx context.Context, app *cli.App) (obligationArgs, error) {
	acc, err := resolveAccount(ctx, app, obligationFlags.account)
	if err != nil {
		return obligationArgs{}, err
	}
	amount, err := parseAmount(obligationFlags.amount)
	if err != nil {
		return obligationArgs{}, err
	}
	frequency, err := parseFrequency(obligationFlags.frequency)
	if err != nil {
		return obligationArgs{}, err
	}
	start, err := parseDay(obligationFlags.start)
	if err != nil {
		return obligationArgs{}, err
	}
	return obligationArgs{account: acc, amount: amount, frequency: frequency, start: start}, nil
}

func frequencyNames() string {
	names := make([]string, 0, len(core.Frequencies()))
	for _, f := range core.Frequencies() {
		names = append(names, string(f))
	}
	return strings.Join(names, "|")
}

func parseFrequency(s string) (core.Frequency, error) {
	f := core.Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("frequency %q: expected one of %s", s, frequencyNames())
	}
	return f, nil
}

func init() {
	for _, c := range []*cobra.Command{addRecurringCmd, addInstallmentCmd} {
		c.Flags().StringVar(&obligationFlags.name, "name", "", "Name shown on generated entries")
		c.Flags().StringVar(&obligationFlags.account, "account", "", "Account id or name")
		c.Flags().StringVar(&obligationFlags.amount, "amount", "", "Amount per period, e.g. 12500.50")
		c.Flags().StringVar(&obligationFlags.frequency, "frequency", string(core.Monthly), frequencyNames())
		c.Flags().StringVar(&obligationFlags.category, "category", string(core.CategoryExpense), "income|expense|savings")
		c.Flags().StringVar(&obligationFlags.start, "start", "", "First due date (YYYY-MM-DD), default today")
		for _, f := range []string{"name", "account", "amount"} {
			_ = c.MarkFlagRequired(f)
		}
	}
	addRecurringCmd.Flags().StringVar(&obligationFlags.end, "end", "", "Last possible due date (YYYY-MM-DD)")
	addInstallmentCmd.Flags().IntVar(&obligationFlags.total, "total", 0, "Number of installments")
	addInstallmentCmd.Flags().IntVar(&obligationFlags.completed, "completed", 0, "Installments already paid")
	_ = addInstallmentCmd.MarkFlagRequired("total")

	updateObligationCmd.Flags().StringVar(&obligationFlags.name, "name", "", "New name")
	updateObligationCmd.Flags().StringVar(&obligationFlags.amount, "amount", "", "New amount per period")
	updateObligationCmd.Flags().StringVar(&obligationFlags.end, "end", "", "New end date")
	updateObligationCmd.Flags().IntVar(&obligationFlags.total, "total", 0, "New installment count")

	obligationsCmd.AddCommand(
		obligationsListCmd,
		addRecurringCmd,
		addInstallmentCmd,
		updateObligationCmd,
		statusCommand("pause", "Stop generating entries until resumed", (*services.ObligationRegistry).Pause),
		statusCommand("resume", "Resume a paused obligation", (*services.ObligationRegistry).Resume),
		deleteObligationCmd,
	)
	rootCmd.AddCommand(obligationsCmd)
}
