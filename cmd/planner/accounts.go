package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"planner/internal/cli"
	"planner/internal/core"
)

var flagAccountBank string

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage bank accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			accs, err := app.Backend.Stores.Accounts.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBANK")
			for _, a := range accs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, a.BankName)
			}
			return tw.Flush()
		})
	},
}

var accountsAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			acc, err := app.Backend.Stores.Accounts.Create(ctx, core.Account{Name: args[0], BankName: flagAccountBank})
			if err != nil {
				return err
			}
			fmt.Printf("  Created account %s (%s)\n", acc.Name, acc.ID)
			return nil
		})
	},
}

func init() {
	accountsAddCmd.Flags().StringVar(&flagAccountBank, "bank", "", "Bank name")
	accountsCmd.AddCommand(accountsListCmd, accountsAddCmd)
	rootCmd.AddCommand(accountsCmd)
}
