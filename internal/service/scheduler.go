package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/punchamoorthee/payledger/internal/calendar"
	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/store"
)

const defaultSweepWorkers = 1

// PaymentScheduler creates recurring monthly payments and executes the ones
// that fall due. It owns no goroutines between calls; an external trigger
// invokes RunDuePayments.
type PaymentScheduler struct {
	store   store.Store
	logger  *zap.Logger
	workers int
}

// NewPaymentScheduler returns a scheduler that executes up to workers due
// payments at a time.
func NewPaymentScheduler(s store.Store, logger *zap.Logger, workers int) *PaymentScheduler {
	if workers < 1 {
		workers = defaultSweepWorkers
	}
	return &PaymentScheduler{store: s, logger: logger, workers: workers}
}

// ScheduleParams holds parameters for creating a scheduled payment.
type ScheduleParams struct {
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.Decimal
	// Day is the day of month the series targets, 1 to 31.
	Day int
	// ForcePayment executes this month's payment immediately when its slot
	// is today or already past.
	ForcePayment bool
}

// Schedule creates a monthly payment series relative to today.
//
// If this month's slot, params.Day clamped to the month's length, is still
// ahead, the first payment is that slot. Otherwise this month's slot is
// today or past: the first payment is next month, and with ForcePayment
// this month's transfer is executed now. The forced transfer and the new
// schedule commit together.
func (s *PaymentScheduler) Schedule(ctx context.Context, params ScheduleParams, today time.Time) (*domain.ScheduledPayment, error) {
	if err := domain.ValidateAmount(params.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateDay(params.Day); err != nil {
		return nil, err
	}
	today = calendar.DateOf(today, nil)

	payment := &domain.ScheduledPayment{
		FromAccountID: params.FromAccountID,
		ToAccountID:   params.ToAccountID,
		Amount:        params.Amount,
		OriginalDay:   params.Day,
	}

	slot := calendar.Date(today.Year(), today.Month(), params.Day)
	executeNow := params.ForcePayment && !slot.After(today)

	var forced *domain.Transfer
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		forced = nil
		if slot.After(today) {
			payment.NextPaymentDate = slot
			return tx.CreateScheduledPayment(ctx, payment)
		}

		if executeNow {
			t, err := moveFunds(ctx, tx, params.FromAccountID, params.ToAccountID, params.Amount)
			if err != nil {
				return fmt.Errorf("forced payment: %w", err)
			}
			forced = t
		}
		payment.NextPaymentDate = calendar.AddOneMonth(today, params.Day)
		return tx.CreateScheduledPayment(ctx, payment)
	})
	if executeNow {
		// A failure after a successful forced transfer rolls it back too.
		transferOutcome := "error"
		switch {
		case err == nil:
			transferOutcome = outcome(nil)
		case forced == nil:
			transferOutcome = outcome(err)
		}
		transfersTotal.WithLabelValues(kindInternal, transferOutcome).Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling payment %d -> %d: %w", params.FromAccountID, params.ToAccountID, err)
	}

	fields := []zap.Field{
		zap.Int64("scheduled_payment_id", payment.ID),
		zap.Int64("from_account_id", payment.FromAccountID),
		zap.Int64("to_account_id", payment.ToAccountID),
		zap.Stringer("amount", payment.Amount),
		zap.Int("original_day", payment.OriginalDay),
		zap.String("next_payment_date", calendar.Format(payment.NextPaymentDate)),
	}
	if forced != nil {
		fields = append(fields, zap.Int64("forced_transfer_id", forced.ID))
	}
	s.logger.Info("Payment scheduled", fields...)
	return payment, nil
}

// PaymentFailure records a due payment the sweep could not execute.
type PaymentFailure struct {
	ScheduledPaymentID int64
	Err                error
}

// SweepReport summarises one RunDuePayments call.
type SweepReport struct {
	RunID    string
	Date     time.Time
	Due      int
	Executed int
	Skipped  int
	Failures []PaymentFailure
}

// RunDuePayments executes every scheduled payment due on or before today.
// Each payment is its own unit of work: claim, transfer, advance one month
// from the date it was due. A failing payment is reported and left
// unadvanced so any later sweep retries it; it never stops the others.
// A payment several months behind catches up one occurrence per sweep.
//
// The returned error is non-nil only if the due payments could not be
// listed or ctx ended before every payment was attempted.
func (s *PaymentScheduler) RunDuePayments(ctx context.Context, today time.Time) (*SweepReport, error) {
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	today = calendar.DateOf(today, nil)
	report := &SweepReport{RunID: uuid.NewString(), Date: today}
	logger := s.logger.With(zap.String("run_id", report.RunID), zap.String("date", calendar.Format(today)))

	due, err := s.store.ListDuePayments(ctx, today)
	if err != nil {
		return report, fmt.Errorf("listing due payments: %w", err)
	}
	report.Due = len(due)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.workers)

	for _, p := range due {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := s.executeDue(ctx, p.ID, today)
			sweepPaymentsTotal.WithLabelValues(outcome(err)).Inc()

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Executed++
			case errors.Is(err, domain.ErrPaymentNotDue):
				report.Skipped++
			default:
				report.Failures = append(report.Failures, PaymentFailure{ScheduledPaymentID: p.ID, Err: err})
				logger.Warn("Scheduled payment failed",
					zap.Int64("scheduled_payment_id", p.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Due payment sweep finished",
		zap.Int("due", report.Due),
		zap.Int("executed", report.Executed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("sweep interrupted: %w", err)
	}
	return report, nil
}

func (s *PaymentScheduler) executeDue(ctx context.Context, id int64, today time.Time) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.ClaimDuePayment(ctx, id, today)
		if err != nil {
			return err
		}
		if _, err := moveFunds(ctx, tx, p.FromAccountID, p.ToAccountID, p.Amount); err != nil {
			return err
		}
		next := calendar.AddOneMonth(p.NextPaymentDate, p.OriginalDay)
		return tx.UpdateNextPaymentDate(ctx, p.ID, next)
	})
}
