// Package postgres implements store.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/punchamoorthee/payledger/internal/domain"
)

// PostgreSQL error codes the store maps to domain errors.
const (
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNumericOutOfRange   = "22003"
	codeLockNotAvailable    = "55P03"
	codeQueryCanceled       = "57014"
)

// translate maps driver errors to domain errors at the store boundary.
// Errors that are already domain errors pass through untouched.
func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%w: %v", domain.ErrTransactionTimeout, err)
		case codeNumericOutOfRange:
			return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, pgErr.Detail)
		case codeCheckViolation:
			if pgErr.ConstraintName == "accounts_balance_non_negative" {
				return fmt.Errorf("%w: %v", domain.ErrInsufficientBalance, err)
			}
			if pgErr.ConstraintName == "scheduled_payments_original_day_range" {
				return fmt.Errorf("%w: %v", domain.ErrInvalidDay, err)
			}
			return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTransactionTimeout, err)
	}
	return err
}
