// Command posctl runs maintenance tasks against the POS database: schema
// migration, the first admin account, CSV exports, stock alerts and a
// tail of the sale event stream.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tebaspos/backend/internal/config"
	"tebaspos/backend/internal/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "POS backend maintenance CLI",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return logger.Init(cfg.Env)
	},
	SilenceUsage: true,
}

func init() {
	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)

	// Reports
	exportCmd.AddCommand(exportSalesCmd)
	exportCmd.AddCommand(exportCustomersCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(alertsCmd)

	// Events
	eventsCmd.AddCommand(eventsTailCmd)
	rootCmd.AddCommand(eventsCmd)
}
