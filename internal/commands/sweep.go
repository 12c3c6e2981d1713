package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/payledger/internal/calendar"
	"github.com/punchamoorthee/payledger/internal/models"
	"github.com/punchamoorthee/payledger/internal/service"
)

func newSweepCommand() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Execute the scheduled payments due on a date",
		Long: "Executes every scheduled payment due on --date (default: today in LEDGER_TIMEZONE).\n" +
			"Safe to run more than once per day; payments already executed are not due any more.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			day := calendar.DateOf(time.Now(), a.cfg.Location)
			if date != "" {
				if day, err = calendar.Parse(date); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}
			return runSweep(ctx, a.scheduler, day, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "sweep date, YYYY-MM-DD")

	return cmd
}

// runSweep prints the report as JSON and fails when any payment failed, so a
// cron wrapper can alert on the exit status.
func runSweep(ctx context.Context, scheduler *service.PaymentScheduler, day time.Time, out io.Writer) error {
	report, err := scheduler.RunDuePayments(ctx, day)
	if report != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(models.NewSweepReport(report)); encErr != nil && err == nil {
			err = encErr
		}
	}
	if err != nil {
		return err
	}
	if n := len(report.Failures); n > 0 {
		return fmt.Errorf("%d of %d due payments failed", n, report.Due)
	}
	return nil
}
