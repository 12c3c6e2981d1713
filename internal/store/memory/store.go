// Package memory is an in-process implementation of store.Store. Rows carry
// their own exclusive locks and every unit of work stages its writes until
// commit, so it honours the same locking and atomicity contract as the
// Postgres store.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/store"
)

const (
	defaultLockTimeout = 5 * time.Second
	defaultTxTimeout   = 15 * time.Second
)

type accountRow struct {
	lock *semaphore.Weighted
	acc  domain.Account
}

type paymentRow struct {
	lock    *semaphore.Weighted
	payment domain.ScheduledPayment
}

// Store keeps all rows in maps guarded by mu. Row locks are separate from mu
// and are only ever taken by units of work.
type Store struct {
	lockTimeout time.Duration
	txTimeout   time.Duration
	now         func() time.Time

	mu        sync.RWMutex
	accounts  map[int64]*accountRow
	transfers map[int64]*domain.Transfer
	payments  map[int64]*paymentRow

	lastAccountID  int64
	lastTransferID int64
	lastPaymentID  int64
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long a unit of work waits for a row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithTxTimeout bounds a whole unit of work.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) { s.txTimeout = d }
}

// WithClock sets the source of CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		lockTimeout: defaultLockTimeout,
		txTimeout:   defaultTxTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		accounts:    make(map[int64]*accountRow),
		transfers:   make(map[int64]*domain.Transfer),
		payments:    make(map[int64]*paymentRow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() {}

// WithTx runs fn and applies its staged writes in one step if it succeeds.
func (s *Store) WithTx(ctx context.Context, fn store.TxFunc) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx := newTx(s)
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return translateContextErr(err)
	}

	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, acc := range tx.accounts {
		if tx.dirty[id] {
			s.accounts[id].acc = *acc
		}
	}
	for _, t := range tx.transfers {
		t.Metadata = tx.meta[t.ID]
		s.transfers[t.ID] = t
	}
	for id, meta := range tx.meta {
		if t, ok := s.transfers[id]; ok && t.Metadata == nil {
			t.Metadata = meta
		}
	}
	for _, p := range tx.payments {
		s.payments[p.ID] = &paymentRow{lock: semaphore.NewWeighted(1), payment: *p}
	}
	for id, next := range tx.nextDates {
		if row, ok := s.payments[id]; ok {
			row.payment.NextPaymentDate = next
		}
	}
}

func (s *Store) CreateAccount(_ context.Context, balance decimal.Decimal) (*domain.Account, error) {
	if err := domain.ValidateAmount(balance); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAccountID++
	acc := domain.Account{ID: s.lastAccountID, Balance: balance, CreatedAt: s.now()}
	s.accounts[acc.ID] = &accountRow{lock: semaphore.NewWeighted(1), acc: acc}
	return &acc, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	acc := row.acc
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

func (s *Store) GetTransfer(_ context.Context, id int64) (*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	out := *t
	out.Metadata = maps.Clone(t.Metadata)
	return &out, nil
}

// ListAccountTransfers returns the account's transfers, newest first.
func (s *Store) ListAccountTransfers(_ context.Context, accountID int64) ([]domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, domain.ErrAccountNotFound
	}

	var out []domain.Transfer
	ids := slices.Sorted(maps.Keys(s.transfers))
	slices.Reverse(ids)
	for _, id := range ids {
		t := s.transfers[id]
		if t.FromAccountID != accountID && t.ToAccountID != accountID {
			continue
		}
		cp := *t
		cp.Metadata = maps.Clone(t.Metadata)
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) GetScheduledPayment(_ context.Context, id int64) (*domain.ScheduledPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.payments[id]
	if !ok {
		return nil, domain.ErrScheduledPaymentNotFound
	}
	p := row.payment
	return &p, nil
}

func (s *Store) ListDuePayments(_ context.Context, date time.Time) ([]domain.ScheduledPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []domain.ScheduledPayment
	for _, id := range slices.Sorted(maps.Keys(s.payments)) {
		p := s.payments[id].payment
		if dueBy(p.NextPaymentDate, date) {
			due = append(due, p)
		}
	}
	slices.SortStableFunc(due, func(a, b domain.ScheduledPayment) int {
		return a.NextPaymentDate.Compare(b.NextPaymentDate)
	})
	return due, nil
}

func (s *Store) accountExists(ids ...int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range ids {
		if _, ok := s.accounts[id]; !ok {
			return fmt.Errorf("%w: %d", domain.ErrAccountNotFound, id)
		}
	}
	return nil
}

func (s *Store) nextTransferID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTransferID++
	return s.lastTransferID
}

func (s *Store) nextPaymentID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPaymentID++
	return s.lastPaymentID
}

// dueBy reports whether the calendar date of next is on or before asOf.
func dueBy(next, asOf time.Time) bool {
	ny, nm, nd := next.Date()
	ay, am, ad := asOf.Date()
	return !time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC).After(time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC))
}
