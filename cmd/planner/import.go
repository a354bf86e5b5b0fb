package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"planner/internal/cli"
)

var importSeedCmd = &cobra.Command{
	Use:   "import-seed FILE",
	Short: "Import planned months from a spreadsheet JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			report, err := app.Importer.ImportFile(ctx, args[0])
			for _, d := range report.Imported {
				fmt.Printf("  Imported %s\n", d)
			}
			for _, d := range report.Skipped {
				fmt.Printf("  Skipped  %s (already planned)\n", d)
			}
			for _, name := range report.AccountsCreated {
				fmt.Printf("  New account %s\n", name)
			}
			for _, w := range report.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(importSeedCmd)
}
