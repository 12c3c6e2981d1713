package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a balance holder in the ledger. Accounts are owned by
// the surrounding service; the core only reads and moves their balance.
type Account struct {
	ID        int64
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// Transfer is the immutable record of one committed balance movement.
// External transfers involve a single account, stored as both sides.
type Transfer struct {
	ID            int64
	CreatedAt     time.Time
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.Decimal
	IsExternal    bool
	IsOutbound    bool // meaningful only when IsExternal
	Metadata      map[string]string
}

// TransferMeta is one key/value pair attached to an external transfer.
type TransferMeta struct {
	TransferID int64
	Key        string
	Value      string
}

// ScheduledPayment is a recurring monthly transfer. NextPaymentDate is the
// only field that changes after creation.
type ScheduledPayment struct {
	ID              int64
	FromAccountID   int64
	ToAccountID     int64
	Amount          decimal.Decimal
	NextPaymentDate time.Time
	// OriginalDay is the day of month the series targets. It survives
	// months that are too short for it.
	OriginalDay int
	CreatedAt   time.Time
}
