package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/punchamoorthee/payledger/internal/domain"
)

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	var acc domain.Account
	err := t.tx.QueryRow(ctx,
		"SELECT id, balance, created_at FROM accounts WHERE id = $1 FOR UPDATE", id,
	).Scan(&acc.ID, &acc.Balance, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, id)
		}
		return nil, translate(ctx, fmt.Errorf("lock acquisition failed: %w", err))
	}
	return &acc, nil
}

func (t *pgTx) SaveAccount(ctx context.Context, acc *domain.Account) error {
	tag, err := t.tx.Exec(ctx, "UPDATE accounts SET balance = $1 WHERE id = $2", acc.Balance, acc.ID)
	if err != nil {
		return translate(ctx, fmt.Errorf("balance update failed: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, acc.ID)
	}
	return nil
}

func (t *pgTx) CreateTransfer(ctx context.Context, tr *domain.Transfer) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO transfers (from_account_id, to_account_id, amount, is_external, is_outbound)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		tr.FromAccountID, tr.ToAccountID, tr.Amount, tr.IsExternal, tr.IsOutbound,
	).Scan(&tr.ID, &tr.CreatedAt)
	if err != nil {
		return translate(ctx, fmt.Errorf("transfer insert failed: %w", err))
	}
	return nil
}

// CreateTransferMeta bulk-inserts the metadata rows with COPY.
func (t *pgTx) CreateTransferMeta(ctx context.Context, transferID int64, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([][]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []any{transferID, k, meta[k]})
	}

	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"transfer_meta"},
		[]string{"transfer_id", "key", "value"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return translate(ctx, fmt.Errorf("transfer meta insert failed: %w", err))
	}
	return nil
}

func (t *pgTx) CreateScheduledPayment(ctx context.Context, p *domain.ScheduledPayment) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO scheduled_payments (from_account_id, to_account_id, amount, next_payment_date, original_day)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.FromAccountID, p.ToAccountID, p.Amount, p.NextPaymentDate, int16(p.OriginalDay),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return translate(ctx, fmt.Errorf("scheduled payment insert failed: %w", err))
	}
	return nil
}

// ClaimDuePayment locks the payment only if it is still due as of asOf. SKIP LOCKED
// makes a concurrent sweep pass over rows another sweep is executing.
func (t *pgTx) ClaimDuePayment(ctx context.Context, id int64, asOf time.Time) (*domain.ScheduledPayment, error) {
	row := t.tx.QueryRow(ctx,
		"SELECT "+paymentColumns+" FROM scheduled_payments WHERE id = $1 AND next_payment_date <= $2 FOR UPDATE SKIP LOCKED",
		id, asOf)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotDue
		}
		return nil, translate(ctx, fmt.Errorf("claiming scheduled payment failed: %w", err))
	}
	return p, nil
}

func (t *pgTx) UpdateNextPaymentDate(ctx context.Context, id int64, next time.Time) error {
	tag, err := t.tx.Exec(ctx, "UPDATE scheduled_payments SET next_payment_date = $1 WHERE id = $2", next, id)
	if err != nil {
		return translate(ctx, fmt.Errorf("advancing scheduled payment failed: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrScheduledPaymentNotFound, id)
	}
	return nil
}
