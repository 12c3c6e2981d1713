package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/store"
)

type Store struct {
	Db          *pgxpool.Pool
	lockTimeout time.Duration
	txTimeout   time.Duration
}

var _ store.Store = (*Store)(nil)

// Options bounds the units of work run by the store.
type Options struct {
	LockTimeout time.Duration
	TxTimeout   time.Duration
}

func NewStore(ctx context.Context, connString string, opts Options) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool, lockTimeout: opts.LockTimeout, txTimeout: opts.TxTimeout}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// WithTx runs fn inside a READ COMMITTED transaction. Row locks taken with
// FOR UPDATE serialise writers; a lock wait longer than the configured
// lock_timeout aborts the transaction.
func (s *Store) WithTx(ctx context.Context, fn store.TxFunc) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return translate(ctx, fmt.Errorf("tx begin failed: %w", err))
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	if s.lockTimeout > 0 {
		_, err = tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", fmt.Sprintf("%dms", s.lockTimeout.Milliseconds()))
		if err != nil {
			return translate(ctx, fmt.Errorf("setting lock timeout failed: %w", err))
		}
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return translate(ctx, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(ctx, fmt.Errorf("tx commit failed: %w", err))
	}
	return nil
}

// CreateAccount creates a new account with the given opening balance.
func (s *Store) CreateAccount(ctx context.Context, balance decimal.Decimal) (*domain.Account, error) {
	if err := domain.ValidateAmount(balance); err != nil {
		return nil, err
	}

	var acc domain.Account
	err := s.Db.QueryRow(ctx,
		"INSERT INTO accounts (balance) VALUES ($1) RETURNING id, balance, created_at",
		balance,
	).Scan(&acc.ID, &acc.Balance, &acc.CreatedAt)
	if err != nil {
		return nil, translate(ctx, fmt.Errorf("account insert failed: %w", err))
	}
	return &acc, nil
}

// GetAccount retrieves a single account by ID.
func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var acc domain.Account
	err := s.Db.QueryRow(ctx,
		"SELECT id, balance, created_at FROM accounts WHERE id = $1", id,
	).Scan(&acc.ID, &acc.Balance, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, id)
		}
		return nil, translate(ctx, err)
	}
	return &acc, nil
}

func (s *Store) RefreshAccount(ctx context.Context, acc *domain.Account) error {
	fresh, err := s.GetAccount(ctx, acc.ID)
	if err != nil {
		return err
	}
	*acc = *fresh
	return nil
}

// GetTransfer retrieves transfer details together with its metadata.
func (s *Store) GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error) {
	row := s.Db.QueryRow(ctx, "SELECT "+transferColumns+" FROM transfers WHERE id = $1", id)
	t, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrTransferNotFound, id)
		}
		return nil, translate(ctx, err)
	}

	meta, err := s.loadMeta(ctx, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Metadata = meta[t.ID]
	return t, nil
}

// ListAccountTransfers retrieves the transfers touching an account, newest first.
func (s *Store) ListAccountTransfers(ctx context.Context, accountID int64) ([]domain.Transfer, error) {
	// First check if account exists
	var exists bool
	err := s.Db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists)
	if err != nil {
		return nil, translate(ctx, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, accountID)
	}

	rows, err := s.Db.Query(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE from_account_id = $1 OR to_account_id = $1 ORDER BY id DESC",
		accountID)
	if err != nil {
		return nil, translate(ctx, err)
	}
	defer rows.Close()

	var (
		transfers []domain.Transfer
		ids       []int64
	)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(ctx, err)
	}

	meta, err := s.loadMeta(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range transfers {
		transfers[i].Metadata = meta[transfers[i].ID]
	}
	return transfers, nil
}

func (s *Store) loadMeta(ctx context.Context, transferIDs []int64) (map[int64]map[string]string, error) {
	out := make(map[int64]map[string]string)
	if len(transferIDs) == 0 {
		return out, nil
	}

	rows, err := s.Db.Query(ctx,
		"SELECT transfer_id, key, value FROM transfer_meta WHERE transfer_id = ANY($1)", transferIDs)
	if err != nil {
		return nil, translate(ctx, fmt.Errorf("transfer meta query failed: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.TransferMeta
		if err := rows.Scan(&m.TransferID, &m.Key, &m.Value); err != nil {
			return nil, fmt.Errorf("scanning transfer meta: %w", err)
		}
		if out[m.TransferID] == nil {
			out[m.TransferID] = make(map[string]string)
		}
		out[m.TransferID][m.Key] = m.Value
	}
	return out, rows.Err()
}

func (s *Store) GetScheduledPayment(ctx context.Context, id int64) (*domain.ScheduledPayment, error) {
	row := s.Db.QueryRow(ctx, "SELECT "+paymentColumns+" FROM scheduled_payments WHERE id = $1", id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrScheduledPaymentNotFound, id)
		}
		return nil, translate(ctx, err)
	}
	return p, nil
}

// ListDuePayments selects every scheduled payment due on or before date.
func (s *Store) ListDuePayments(ctx context.Context, date time.Time) ([]domain.ScheduledPayment, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT "+paymentColumns+" FROM scheduled_payments WHERE next_payment_date <= $1 ORDER BY next_payment_date, id",
		date)
	if err != nil {
		return nil, translate(ctx, fmt.Errorf("due payments query failed: %w", err))
	}
	defer rows.Close()

	var due []domain.ScheduledPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning scheduled payment: %w", err)
		}
		due = append(due, *p)
	}
	return due, rows.Err()
}

const (
	transferColumns = "id, created_at, from_account_id, to_account_id, amount, is_external, is_outbound"
	paymentColumns  = "id, from_account_id, to_account_id, amount, next_payment_date, original_day, created_at"
)

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var t domain.Transfer
	err := row.Scan(&t.ID, &t.CreatedAt, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.IsExternal, &t.IsOutbound)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanPayment(row pgx.Row) (*domain.ScheduledPayment, error) {
	var (
		p   domain.ScheduledPayment
		day int16
	)
	err := row.Scan(&p.ID, &p.FromAccountID, &p.ToAccountID, &p.Amount, &p.NextPaymentDate, &day, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.OriginalDay = int(day)
	return &p, nil
}
