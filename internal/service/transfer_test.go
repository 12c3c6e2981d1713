package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/store"
	"github.com/punchamoorthee/payledger/internal/store/memory"
)

func TestTransfer_Basic(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1000")
	b := env.account(t, "1000")

	transfer, err := env.transfers.TransferAccounts(context.Background(), a, b, dec("100"))
	require.NoError(t, err)

	// Caller-held copies are refreshed from the committed rows.
	requireDecEqual(t, "900", a.Balance)
	requireDecEqual(t, "1100", b.Balance)

	transfers, err := env.store.ListAccountTransfers(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, transfer.ID, transfers[0].ID)
	assert.Equal(t, a.ID, transfers[0].FromAccountID)
	assert.Equal(t, b.ID, transfers[0].ToAccountID)
	requireDecEqual(t, "100", transfers[0].Amount)
	assert.False(t, transfers[0].IsExternal)
}

func TestTransfer_InvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1000")
	b := env.account(t, "1000")

	_, err := env.transfers.Transfer(context.Background(), a.ID, b.ID, dec("-1"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	requireDecEqual(t, "1000", env.balance(t, a.ID))
	requireDecEqual(t, "1000", env.balance(t, b.ID))
	assert.Zero(t, env.transferCount(t, a.ID))
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "50")
	b := env.account(t, "1000")

	_, err := env.transfers.Transfer(context.Background(), a.ID, b.ID, dec("50.01"))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	requireDecEqual(t, "50", env.balance(t, a.ID))
	requireDecEqual(t, "1000", env.balance(t, b.ID))
	assert.Zero(t, env.transferCount(t, a.ID))
	assert.Zero(t, env.transferCount(t, b.ID))
}

func TestTransfer_ExactBalance(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "50")
	b := env.account(t, "0")

	_, err := env.transfers.Transfer(context.Background(), a.ID, b.ID, dec("50"))
	require.NoError(t, err)
	requireDecEqual(t, "0", env.balance(t, a.ID))
	requireDecEqual(t, "50", env.balance(t, b.ID))
}

func TestTransfer_AccountNotFound(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "50")

	_, err := env.transfers.Transfer(context.Background(), a.ID, 999, dec("1"))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	requireDecEqual(t, "50", env.balance(t, a.ID))
}

func TestTransfer_SelfTransfer(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "50")

	_, err := env.transfers.Transfer(context.Background(), a.ID, a.ID, dec("20"))
	require.NoError(t, err)
	requireDecEqual(t, "50", env.balance(t, a.ID))
	assert.Equal(t, 1, env.transferCount(t, a.ID))
}

func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "1000")
	b := env.account(t, "1000")

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for range rounds {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.transfers.Transfer(context.Background(), a.ID, b.ID, dec("3"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := env.transfers.Transfer(context.Background(), b.ID, a.ID, dec("5"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	balA, balB := env.balance(t, a.ID), env.balance(t, b.ID)
	requireDecEqual(t, "1100", balA)
	requireDecEqual(t, "900", balB)
	requireDecEqual(t, "2000", balA.Add(balB))
	assert.Equal(t, 2*rounds, env.transferCount(t, a.ID))
}

func TestTransfer_LockTimeout(t *testing.T) {
	env := newTestEnv(t, memory.WithLockTimeout(20*time.Millisecond))
	a := env.account(t, "100")
	b := env.account(t, "100")

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = env.store.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.GetAccountForUpdate(ctx, b.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := env.transfers.Transfer(context.Background(), a.ID, b.ID, dec("10"))
	close(release)
	<-done

	require.ErrorIs(t, err, domain.ErrTransactionTimeout)
	requireDecEqual(t, "100", env.balance(t, a.ID))
	requireDecEqual(t, "100", env.balance(t, b.ID))
	assert.Zero(t, env.transferCount(t, a.ID))

	// The lock on a was released by the rollback.
	_, err = env.transfers.Transfer(context.Background(), a.ID, b.ID, dec("10"))
	require.NoError(t, err)
}

func TestExternalTransfer_Inbound(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "10")

	meta := map[string]string{"provider": "acme", "provider_ref": "in-123"}
	transfer, err := env.transfers.ExternalTransfer(context.Background(), a.ID, dec("25.50"), false, meta)
	require.NoError(t, err)
	assert.True(t, transfer.IsExternal)
	assert.False(t, transfer.IsOutbound)
	assert.Equal(t, a.ID, transfer.FromAccountID)
	assert.Equal(t, a.ID, transfer.ToAccountID)

	requireDecEqual(t, "35.50", env.balance(t, a.ID))

	stored, err := env.store.GetTransfer(context.Background(), transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, meta, stored.Metadata)
}

func TestExternalTransfer_Outbound(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "10")

	transfer, err := env.transfers.ExternalTransfer(context.Background(), a.ID, dec("4"), true, nil)
	require.NoError(t, err)
	assert.True(t, transfer.IsOutbound)
	assert.Empty(t, transfer.Metadata)
	requireDecEqual(t, "6", env.balance(t, a.ID))

	_, err = env.transfers.ExternalTransfer(context.Background(), a.ID, dec("6.01"), true, map[string]string{"k": "v"})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	requireDecEqual(t, "6", env.balance(t, a.ID))
	assert.Equal(t, 1, env.transferCount(t, a.ID))
}

func TestExternalTransfer_InvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	a := env.account(t, "10")

	_, err := env.transfers.ExternalTransfer(context.Background(), a.ID, dec("-5"), false, nil)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	requireDecEqual(t, "10", env.balance(t, a.ID))
}

func TestTransfer_BalanceOverflow(t *testing.T) {
	env := newTestEnv(t)
	full := env.account(t, "9999999999999999.99")
	a := env.account(t, "10")

	_, err := env.transfers.Transfer(context.Background(), a.ID, full.ID, dec("0.01"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.transfers.ExternalTransfer(context.Background(), full.ID, dec("1"), false, nil)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	requireDecEqual(t, "10", env.balance(t, a.ID))
	requireDecEqual(t, "9999999999999999.99", env.balance(t, full.ID))
	assert.Zero(t, env.transferCount(t, full.ID))
}
