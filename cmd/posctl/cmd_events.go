package main

import (
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/events"
)

var tailGroup string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the sale event stream",
}

// posctl events tail
var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print sale events as JSON lines until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is not set")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopicSales, tailGroup)
		defer consumer.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		err := consumer.Tail(ctx, func(event domain.SaleEvent) error {
			return enc.Encode(event)
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	eventsTailCmd.Flags().StringVar(&tailGroup, "group", "posctl-tail", "consumer group id")
}
