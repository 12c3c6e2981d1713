package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/store/postgres"
)

func newSeedCommand() *cobra.Command {
	var total int
	var balance string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Bulk-create accounts for benchmarking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseAmount(balance)
			if err != nil {
				return fmt.Errorf("--balance: %w", err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			pg, ok := a.store.(*postgres.Store)
			if !ok {
				return fmt.Errorf("seed requires the postgres store")
			}

			a.logger.Info("Seeding database", zap.Int("accounts", total), zap.Stringer("balance", amount))
			copied, err := pg.SeedAccounts(cmd.Context(), total, amount)
			if err != nil {
				return err
			}
			if copied == 0 {
				a.logger.Info("Database already has enough accounts. Skipping.")
				return nil
			}
			a.logger.Info("Seeded accounts", zap.Int64("inserted", copied))
			return nil
		},
	}

	cmd.Flags().IntVar(&total, "accounts", 1000, "number of accounts the table should hold")
	cmd.Flags().StringVar(&balance, "balance", "100.00", "opening balance of each new account")

	return cmd
}
