package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"planner/internal/amqp"
	"planner/internal/cli"
	"planner/internal/core"
	plog "planner/internal/log"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect ledger entry events on the broker",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print ledger entry events as they arrive (consumes them)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is not set")
		}
		cli.SetupLogger(plog.ComponentAMQP, cfg.LogLevel)

		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, nil)
		if err != nil {
			return err
		}
		defer client.Close()

		err = client.ConsumeEntryEvents(cmd.Context(), func(e *amqp.LedgerEntryEvent) error {
			fmt.Printf("  %s  %-8s %-24s %12s  %s\n",
				e.Date, e.Category, e.Description, core.Money{Cents: e.AmountCents}, e.Status)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	eventsCmd.AddCommand(eventsWatchCmd)
	rootCmd.AddCommand(eventsCmd)
}
