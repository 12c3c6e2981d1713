// Package store defines the persistence boundary of the ledger core: an
// account store with atomic units of work and mandatory pessimistic locking.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payledger/internal/domain"
)

// Tx is the view of the store inside one unit of work. Every method takes
// part in the same atomic transaction.
type Tx interface {
	// GetAccountForUpdate reads an account after taking an exclusive lock on
	// it. The lock is held until the unit of work ends. Waiting longer than
	// the store's lock timeout fails with domain.ErrTransactionTimeout.
	GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error)

	// SaveAccount writes the balance of an account locked by this Tx.
	SaveAccount(ctx context.Context, acc *domain.Account) error

	// CreateTransfer inserts t and fills in its ID and CreatedAt.
	CreateTransfer(ctx context.Context, t *domain.Transfer) error

	CreateTransferMeta(ctx context.Context, transferID int64, meta map[string]string) error

	// CreateScheduledPayment inserts p and fills in its ID and CreatedAt.
	CreateScheduledPayment(ctx context.Context, p *domain.ScheduledPayment) error

	// ClaimDuePayment locks a scheduled payment whose next payment date is
	// on or before asOf. It returns domain.ErrPaymentNotDue without waiting
	// if the payment has moved past asOf or another unit of work holds it.
	ClaimDuePayment(ctx context.Context, id int64, asOf time.Time) (*domain.ScheduledPayment, error)

	UpdateNextPaymentDate(ctx context.Context, id int64, next time.Time) error
}

// TxFunc is the body of a unit of work.
type TxFunc func(ctx context.Context, tx Tx) error

// AccountReader reads committed account state.
type AccountReader interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)

	// RefreshAccount overwrites acc with the committed state of its row.
	RefreshAccount(ctx context.Context, acc *domain.Account) error
}

// TransferReader reads committed transfers.
type TransferReader interface {
	GetTransfer(ctx context.Context, id int64) (*domain.Transfer, error)
	ListAccountTransfers(ctx context.Context, accountID int64) ([]domain.Transfer, error)
}

// ScheduleReader reads committed scheduled payments.
type ScheduleReader interface {
	GetScheduledPayment(ctx context.Context, id int64) (*domain.ScheduledPayment, error)

	// ListDuePayments returns every scheduled payment whose next payment
	// date is on or before date, overdue ones included.
	ListDuePayments(ctx context.Context, date time.Time) ([]domain.ScheduledPayment, error)
}

// Store is the full persistence surface used by the services and the API.
type Store interface {
	AccountReader
	TransferReader
	ScheduleReader

	// WithTx runs fn in a single atomic unit of work. The unit commits when
	// fn returns nil and rolls back otherwise; all locks are released either
	// way.
	WithTx(ctx context.Context, fn TxFunc) error

	CreateAccount(ctx context.Context, balance decimal.Decimal) (*domain.Account, error)

	Close()
}
