package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/punchamoorthee/payledger/internal/domain"
)

// memTx stages the writes of one unit of work. Nothing it holds is visible
// to other units until Store.commit.
type memTx struct {
	s *Store

	held           []*semaphore.Weighted
	lockedAccounts map[int64]bool
	lockedPayments map[int64]bool

	accounts  map[int64]*domain.Account
	dirty     map[int64]bool
	transfers []*domain.Transfer
	meta      map[int64]map[string]string
	payments  []*domain.ScheduledPayment
	nextDates map[int64]time.Time
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:              s,
		lockedAccounts: make(map[int64]bool),
		lockedPayments: make(map[int64]bool),
		accounts:       make(map[int64]*domain.Account),
		dirty:          make(map[int64]bool),
		meta:           make(map[int64]map[string]string),
		nextDates:      make(map[int64]time.Time),
	}
}

func (tx *memTx) release() {
	for _, l := range tx.held {
		l.Release(1)
	}
	tx.held = nil
}

// acquire waits for a row lock, bounded by the store's lock timeout.
func (tx *memTx) acquire(ctx context.Context, l *semaphore.Weighted) error {
	lctx, cancel := context.WithTimeout(ctx, tx.s.lockTimeout)
	defer cancel()

	if err := l.Acquire(lctx, 1); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return fmt.Errorf("%w: row lock not acquired within %s", domain.ErrTransactionTimeout, tx.s.lockTimeout)
	}
	tx.held = append(tx.held, l)
	return nil
}

func (tx *memTx) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	if !tx.lockedAccounts[id] {
		tx.s.mu.RLock()
		row, ok := tx.s.accounts[id]
		tx.s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %d", domain.ErrAccountNotFound, id)
		}

		if err := tx.acquire(ctx, row.lock); err != nil {
			return nil, err
		}
		tx.lockedAccounts[id] = true

		// Read after the lock so the balance reflects the last commit.
		tx.s.mu.RLock()
		acc := row.acc
		tx.s.mu.RUnlock()
		tx.accounts[id] = &acc
	}

	acc := *tx.accounts[id]
	return &acc, nil
}

func (tx *memTx) SaveAccount(_ context.Context, acc *domain.Account) error {
	if !tx.lockedAccounts[acc.ID] {
		return fmt.Errorf("account %d is not locked by this transaction", acc.ID)
	}
	if acc.Balance.IsNegative() {
		return fmt.Errorf("%w: balance of account %d would be negative", domain.ErrInsufficientBalance, acc.ID)
	}
	// Same bound as the NUMERIC(18,2) column.
	if err := domain.ValidateAmount(acc.Balance); err != nil {
		return fmt.Errorf("balance of account %d: %w", acc.ID, err)
	}
	staged := *acc
	tx.accounts[acc.ID] = &staged
	tx.dirty[acc.ID] = true
	return nil
}

func (tx *memTx) CreateTransfer(_ context.Context, t *domain.Transfer) error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, t.Amount)
	}
	if err := tx.s.accountExists(t.FromAccountID, t.ToAccountID); err != nil {
		return err
	}

	t.ID = tx.s.nextTransferID()
	t.CreatedAt = tx.s.now()

	staged := *t
	staged.Metadata = nil
	tx.transfers = append(tx.transfers, &staged)
	return nil
}

func (tx *memTx) CreateTransferMeta(_ context.Context, transferID int64, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}
	if tx.meta[transferID] == nil {
		tx.meta[transferID] = make(map[string]string, len(meta))
	}
	maps.Copy(tx.meta[transferID], meta)
	return nil
}

func (tx *memTx) CreateScheduledPayment(_ context.Context, p *domain.ScheduledPayment) error {
	if p.Amount.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, p.Amount)
	}
	if err := domain.ValidateDay(p.OriginalDay); err != nil {
		return err
	}
	if err := tx.s.accountExists(p.FromAccountID, p.ToAccountID); err != nil {
		return err
	}

	p.ID = tx.s.nextPaymentID()
	p.CreatedAt = tx.s.now()

	staged := *p
	tx.payments = append(tx.payments, &staged)
	return nil
}

func (tx *memTx) ClaimDuePayment(_ context.Context, id int64, asOf time.Time) (*domain.ScheduledPayment, error) {
	tx.s.mu.RLock()
	row, ok := tx.s.payments[id]
	tx.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPaymentNotDue
	}

	if !tx.lockedPayments[id] {
		// Held elsewhere means another sweep is executing it.
		if !row.lock.TryAcquire(1) {
			return nil, domain.ErrPaymentNotDue
		}
		tx.held = append(tx.held, row.lock)
		tx.lockedPayments[id] = true
	}

	tx.s.mu.RLock()
	p := row.payment
	tx.s.mu.RUnlock()
	if next, ok := tx.nextDates[id]; ok {
		p.NextPaymentDate = next
	}

	if !dueBy(p.NextPaymentDate, asOf) {
		return nil, domain.ErrPaymentNotDue
	}
	return &p, nil
}

func (tx *memTx) UpdateNextPaymentDate(ctx context.Context, id int64, next time.Time) error {
	for _, p := range tx.payments {
		if p.ID == id {
			p.NextPaymentDate = next
			return nil
		}
	}

	tx.s.mu.RLock()
	row, ok := tx.s.payments[id]
	tx.s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrScheduledPaymentNotFound, id)
	}

	if !tx.lockedPayments[id] {
		if err := tx.acquire(ctx, row.lock); err != nil {
			return err
		}
		tx.lockedPayments[id] = true
	}
	tx.nextDates[id] = next
	return nil
}

func translateContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTransactionTimeout, err)
	}
	return err
}
