package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tebaspos/backend/internal/cache"
	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/events"
	"tebaspos/backend/internal/numfmt"
	"tebaspos/backend/internal/service"
	"tebaspos/backend/internal/stats"
	"tebaspos/backend/internal/stockalert"
)

var (
	reportStore string
	reportFrom  string
	reportTo    string
	reportOut   string
	alertLimit  int
)

// withService runs fn with a service over postgres, acting as an admin so
// any store can be reported on.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := stats.NewEngine(cache.NoopStatsCache{}, 0)
	svc := service.New(db, engine, events.Noop{}, cfg.StoreID, cfg.Location())
	ctx = service.WithActor(ctx, domain.Actor{Username: "posctl", Role: domain.RoleAdmin})
	return fn(ctx, svc)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export store data as CSV",
}

// posctl export sales
var exportSalesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Export the sales history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			name, body, err := svc.ExportSales(ctx, reportStore, reportFrom, reportTo)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), name, body)
		})
	},
}

// posctl export customers
var exportCustomersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Export the customer list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			name, body, err := svc.ExportCustomers(ctx, reportStore)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), name, body)
		})
	},
}

// posctl alerts
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List products at or near their minimum stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *service.Service) error {
			items, err := svc.Alerts(ctx, reportStore, alertLimit)
			if err != nil {
				return err
			}
			return renderAlerts(cmd.OutOrStdout(), items)
		})
	},
}

// writeReport writes body to --out; "-" means stdout and an empty --out
// uses the suggested file name.
func writeReport(stdout io.Writer, name, body string) error {
	switch reportOut {
	case "-":
		_, err := io.WriteString(stdout, body)
		return err
	case "":
		reportOut = name
	}
	if err := os.WriteFile(reportOut, []byte(body), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", reportOut)
	return nil
}

func renderAlerts(w io.Writer, items []stockalert.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no stock alerts")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tPRODUCT\tQTY\tMIN\tSTATUS")
	for _, item := range items {
		code, minimum := "-", "-"
		if item.Code != nil {
			code = fmt.Sprint(*item.Code)
		}
		if item.Minimum != nil {
			minimum = fmt.Sprint(*item.Minimum)
		}
		label := item.Description
		if item.Brand != "" {
			label += " • " + item.Brand
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\n", code, label, numfmt.FormatQty(item.Quantity), item.Unit, minimum, item.Status.Label)
	}
	return tw.Flush()
}

func init() {
	for _, c := range []*cobra.Command{exportSalesCmd, exportCustomersCmd, alertsCmd} {
		c.Flags().StringVar(&reportStore, "store", "", "store id (default: DEFAULT_STORE_ID)")
	}
	for _, c := range []*cobra.Command{exportSalesCmd, exportCustomersCmd} {
		c.Flags().StringVarP(&reportOut, "out", "o", "", `output file, "-" for stdout`)
	}
	exportSalesCmd.Flags().StringVar(&reportFrom, "from", "", "first day, YYYY-MM-DD")
	exportSalesCmd.Flags().StringVar(&reportTo, "to", "", "last day, YYYY-MM-DD")
	alertsCmd.Flags().IntVar(&alertLimit, "limit", 0, "max rows, 0 for all")
}
