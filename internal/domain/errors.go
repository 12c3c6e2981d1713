package domain

import "errors"

var (
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrAccountNotFound          = errors.New("account not found")
	ErrTransferNotFound         = errors.New("transfer not found")
	ErrScheduledPaymentNotFound = errors.New("scheduled payment not found")
	ErrInvalidDay               = errors.New("day of month must be between 1 and 31")

	// ErrTransactionTimeout means a lock or commit did not complete within
	// the store's bound. The unit of work was rolled back and may be retried.
	ErrTransactionTimeout = errors.New("transaction timed out")

	// ErrPaymentNotDue is returned when claiming a scheduled payment that was
	// already advanced, or is being executed by another sweep.
	ErrPaymentNotDue = errors.New("scheduled payment is not due")
)
