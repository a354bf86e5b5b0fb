package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"planner/internal/config"
)

var flagBucketsForce bool

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Show or create the bucket catalogue",
}

var bucketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogue buckets",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		buckets, err := config.LoadBuckets(cfg.BucketsFile)
		if err != nil {
			return err
		}
		fmt.Printf("  Catalogue: %s\n\n", cfg.BucketsFile)
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDEFAULT STATUS")
		for _, b := range buckets {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.Name, b.DefaultStatus)
		}
		return tw.Flush()
	},
}

var bucketsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default catalogue to the buckets file",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.BucketsFile); err == nil && !flagBucketsForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", cfg.BucketsFile)
		}
		if err := config.SaveBuckets(cfg.BucketsFile, config.DefaultBuckets()); err != nil {
			return err
		}
		fmt.Printf("  Wrote %s\n", cfg.BucketsFile)
		return nil
	},
}

func init() {
	bucketsInitCmd.Flags().BoolVar(&flagBucketsForce, "force", false, "Overwrite an existing file")
	bucketsCmd.AddCommand(bucketsListCmd, bucketsInitCmd)
	rootCmd.AddCommand(bucketsCmd)
}
