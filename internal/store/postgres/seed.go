package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SeedAccounts tops the accounts table up to total rows, each opened with
// balance. It returns the number of rows inserted; zero when the table
// already holds enough accounts.
func (s *Store) SeedAccounts(ctx context.Context, total int, balance decimal.Decimal) (int64, error) {
	var count int
	if err := s.Db.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	if count >= total {
		return 0, nil
	}

	now := time.Now()
	rows := make([][]any, 0, total-count)
	for i := count; i < total; i++ {
		rows = append(rows, []any{balance, now})
	}

	// Bulk insert using CopyFrom (fastest method)
	copied, err := s.Db.CopyFrom(ctx,
		pgx.Identifier{"accounts"},
		[]string{"balance", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk insert failed: %w", err)
	}
	return copied, nil
}
