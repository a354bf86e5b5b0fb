package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"planner/internal/cli"
	"planner/internal/core"
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Keep counting an amount after its due date has passed",
	Long: `An override names an entity (an account allocation or a bucket) and a due
date. While it exists, amounts due on that date still count in effective
totals even after the date has passed.`,
}

func overrideKey(args []string) (core.OverrideKey, error) {
	d, err := core.ParseDate(args[1])
	if err != nil {
		return core.OverrideKey{}, err
	}
	return core.OverrideKey{EntityID: args[0], Date: d}, nil
}

var overrideAddCmd = &cobra.Command{
	Use:   "add ENTITY DATE",
	Short: "Add an override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := overrideKey(args)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return app.Planner.AddOverride(ctx, k.EntityID, k.Date)
		})
	},
}

var overrideRemoveCmd = &cobra.Command{
	Use:   "remove ENTITY DATE",
	Short: "Remove an override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := overrideKey(args)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return app.Planner.RemoveOverride(ctx, k.EntityID, k.Date)
		})
	},
}

var overrideListCmd = &cobra.Command{
	Use:   "list",
	Short: "List overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			keys, err := app.Planner.ListOverrides(ctx)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("  No overrides")
			}
			for _, k := range keys {
				fmt.Printf("  %s  %s\n", k.Date, k.EntityID)
			}
			return nil
		})
	},
}

func init() {
	overrideCmd.AddCommand(overrideAddCmd, overrideRemoveCmd, overrideListCmd)
	rootCmd.AddCommand(overrideCmd)
}
