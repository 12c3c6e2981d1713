package service

import (
	"context"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/store"
)

const (
	kindInternal = "internal"
	kindExternal = "external"
)

// TransferService moves money between accounts. Every movement is one unit
// of work over the store with the touched account rows locked.
type TransferService struct {
	store  store.Store
	logger *zap.Logger
}

func NewTransferService(s store.Store, logger *zap.Logger) *TransferService {
	return &TransferService{store: s, logger: logger}
}

// Transfer debits fromID and credits toID by amount and records the
// movement. Nothing is written unless all of it is.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (*domain.Transfer, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		transfersTotal.WithLabelValues(kindInternal, outcome(err)).Inc()
		return nil, err
	}

	var transfer *domain.Transfer
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		transfer, err = moveFunds(ctx, tx, fromID, toID, amount)
		return err
	})
	transfersTotal.WithLabelValues(kindInternal, outcome(err)).Inc()
	if err != nil {
		s.logger.Debug("Transfer rolled back",
			zap.Int64("from_account_id", fromID),
			zap.Int64("to_account_id", toID),
			zap.Stringer("amount", amount),
			zap.Error(err),
		)
		return nil, fmt.Errorf("transfer %d -> %d: %w", fromID, toID, err)
	}

	s.logger.Info("Transfer committed",
		zap.Int64("transfer_id", transfer.ID),
		zap.Int64("from_account_id", fromID),
		zap.Int64("to_account_id", toID),
		zap.Stringer("amount", amount),
	)
	return transfer, nil
}

// TransferAccounts is Transfer for callers holding account objects. After
// the commit both objects are reloaded from the store so they carry the
// balances written under lock rather than their pre-transfer copies.
func (s *TransferService) TransferAccounts(ctx context.Context, from, to *domain.Account, amount decimal.Decimal) (*domain.Transfer, error) {
	transfer, err := s.Transfer(ctx, from.ID, to.ID, amount)
	if err != nil {
		return nil, err
	}
	if err := s.store.RefreshAccount(ctx, from); err != nil {
		return transfer, fmt.Errorf("refreshing account %d: %w", from.ID, err)
	}
	if err := s.store.RefreshAccount(ctx, to); err != nil {
		return transfer, fmt.Errorf("refreshing account %d: %w", to.ID, err)
	}
	return transfer, nil
}

// ExternalTransfer moves money between accountID and the outside world.
// Outbound transfers debit the account and need sufficient funds; inbound
// ones credit it. metadata is stored with the transfer in the same unit.
func (s *TransferService) ExternalTransfer(ctx context.Context, accountID int64, amount decimal.Decimal, isOutbound bool, metadata map[string]string) (*domain.Transfer, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		transfersTotal.WithLabelValues(kindExternal, outcome(err)).Inc()
		return nil, err
	}

	var transfer *domain.Transfer
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		if isOutbound {
			if acc.Balance.LessThan(amount) {
				return domain.ErrInsufficientBalance
			}
			acc.Balance = acc.Balance.Sub(amount)
		} else {
			acc.Balance = acc.Balance.Add(amount)
		}
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}

		transfer = &domain.Transfer{
			FromAccountID: accountID,
			ToAccountID:   accountID,
			Amount:        amount,
			IsExternal:    true,
			IsOutbound:    isOutbound,
		}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			return err
		}
		if err := tx.CreateTransferMeta(ctx, transfer.ID, metadata); err != nil {
			return err
		}
		if len(metadata) > 0 {
			transfer.Metadata = maps.Clone(metadata)
		}
		return nil
	})
	transfersTotal.WithLabelValues(kindExternal, outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("external transfer on account %d: %w", accountID, err)
	}

	s.logger.Info("External transfer committed",
		zap.Int64("transfer_id", transfer.ID),
		zap.Int64("account_id", accountID),
		zap.Bool("outbound", isOutbound),
		zap.Stringer("amount", amount),
		zap.Int("metadata_keys", len(metadata)),
	)
	return transfer, nil
}

// moveFunds performs an internal transfer inside an existing unit of work.
// Accounts are locked in ascending id order so two opposite transfers
// cannot deadlock.
func moveFunds(ctx context.Context, tx store.Tx, fromID, toID int64, amount decimal.Decimal) (*domain.Transfer, error) {
	firstID, secondID := fromID, toID
	if firstID > secondID {
		firstID, secondID = toID, fromID
	}

	first, err := tx.GetAccountForUpdate(ctx, firstID)
	if err != nil {
		return nil, err
	}
	second := first
	if secondID != firstID {
		second, err = tx.GetAccountForUpdate(ctx, secondID)
		if err != nil {
			return nil, err
		}
	}

	from, to := first, second
	if fromID != firstID {
		from, to = second, first
	}

	if from.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientBalance
	}

	// A self-transfer leaves the balance untouched but is still recorded.
	if fromID != toID {
		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)
		if err := tx.SaveAccount(ctx, from); err != nil {
			return nil, err
		}
		if err := tx.SaveAccount(ctx, to); err != nil {
			return nil, err
		}
	}

	transfer := &domain.Transfer{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
	}
	if err := tx.CreateTransfer(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}
