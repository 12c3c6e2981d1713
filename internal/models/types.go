// Package models holds the JSON shapes of the HTTP API. Amounts travel as
// decimal strings ("12.50"); numbers are accepted on input. Dates are
// YYYY-MM-DD.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payledger/internal/calendar"
	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/service"
)

type CreateAccountRequest struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// Account represents a ledger account.
type Account struct {
	ID        int64           `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransferRequest is the payload for an internal transfer.
type TransferRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// ExternalTransferRequest moves money between one account and the outside.
type ExternalTransferRequest struct {
	AccountID  int64             `json:"account_id"`
	Amount     decimal.Decimal   `json:"amount"`
	IsOutbound bool              `json:"is_outbound"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Transfer is the immutable record of a committed movement.
type Transfer struct {
	ID            int64             `json:"id"`
	FromAccountID int64             `json:"from_account_id"`
	ToAccountID   int64             `json:"to_account_id"`
	Amount        decimal.Decimal   `json:"amount"`
	IsExternal    bool              `json:"is_external"`
	IsOutbound    bool              `json:"is_outbound"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type ScheduleRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Day           int             `json:"day"`
	ForcePayment  bool            `json:"force_payment"`
}

type ScheduledPayment struct {
	ID              int64           `json:"id"`
	FromAccountID   int64           `json:"from_account_id"`
	ToAccountID     int64           `json:"to_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	NextPaymentDate string          `json:"next_payment_date"`
	OriginalDay     int             `json:"original_day"`
	CreatedAt       time.Time       `json:"created_at"`
}

type PaymentFailure struct {
	ScheduledPaymentID int64  `json:"scheduled_payment_id"`
	Error              string `json:"error"`
}

// SweepReport is the result of one due-payment sweep.
type SweepReport struct {
	RunID    string           `json:"run_id"`
	Date     string           `json:"date"`
	Due      int              `json:"due"`
	Executed int              `json:"executed"`
	Skipped  int              `json:"skipped"`
	Failures []PaymentFailure `json:"failures"`
}

func NewAccount(a *domain.Account) Account {
	return Account{ID: a.ID, Balance: a.Balance, CreatedAt: a.CreatedAt}
}

func NewTransfer(t *domain.Transfer) Transfer {
	return Transfer{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount,
		IsExternal:    t.IsExternal,
		IsOutbound:    t.IsOutbound,
		Metadata:      t.Metadata,
		CreatedAt:     t.CreatedAt,
	}
}

func NewTransfers(ts []domain.Transfer) []Transfer {
	out := make([]Transfer, 0, len(ts))
	for i := range ts {
		out = append(out, NewTransfer(&ts[i]))
	}
	return out
}

func NewScheduledPayment(p *domain.ScheduledPayment) ScheduledPayment {
	return ScheduledPayment{
		ID:              p.ID,
		FromAccountID:   p.FromAccountID,
		ToAccountID:     p.ToAccountID,
		Amount:          p.Amount,
		NextPaymentDate: calendar.Format(p.NextPaymentDate),
		OriginalDay:     p.OriginalDay,
		CreatedAt:       p.CreatedAt,
	}
}

func NewSweepReport(r *service.SweepReport) SweepReport {
	out := SweepReport{
		RunID:    r.RunID,
		Date:     calendar.Format(r.Date),
		Due:      r.Due,
		Executed: r.Executed,
		Skipped:  r.Skipped,
		Failures: make([]PaymentFailure, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, PaymentFailure{ScheduledPaymentID: f.ScheduledPaymentID, Error: f.Err.Error()})
	}
	return out
}
