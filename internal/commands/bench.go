package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/punchamoorthee/payledger/internal/bench"
	"github.com/punchamoorthee/payledger/internal/domain"
)

func newBenchCommand() *cobra.Command {
	var (
		opts   bench.Options
		amount string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Drive transfer load against a running API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.Amount, err = domain.ParseAmount(amount); err != nil {
				return fmt.Errorf("--amount: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Starting Benchmark: %s | Workers: %d | Duration: %s\n",
				opts.Workload, opts.Concurrency, opts.Duration)

			results, err := bench.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("results_%s.json", opts.Workload)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("writing results: %w", err)
			}
			defer f.Close()
			return json.NewEncoder(f).Encode(results)
		},
	}

	cmd.Flags().StringVar(&opts.TargetURL, "url", "http://localhost:8080", "API base URL")
	cmd.Flags().IntVar(&opts.Concurrency, "workers", 10, "number of concurrent workers")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 30*time.Second, "test duration")
	cmd.Flags().StringVar(&opts.Workload, "workload", bench.WorkloadUniform, "workload type: uniform | hotspot")
	cmd.Flags().IntVar(&opts.Accounts, "accounts", 1000, "number of seeded accounts (ids 1..N)")
	cmd.Flags().StringVar(&amount, "amount", "1.00", "amount of each transfer")
	cmd.Flags().StringVar(&out, "out", "", "results file (default results_<workload>.json)")

	return cmd
}
