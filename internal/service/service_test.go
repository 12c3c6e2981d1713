package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/store/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type testEnv struct {
	store     *memory.Store
	transfers *TransferService
	scheduler *PaymentScheduler
}

func newTestEnv(t *testing.T, opts ...memory.Option) *testEnv {
	t.Helper()
	s := memory.New(opts...)
	logger := zaptest.NewLogger(t)
	return &testEnv{
		store:     s,
		transfers: NewTransferService(s, logger),
		scheduler: NewPaymentScheduler(s, logger, 4),
	}
}

func (e *testEnv) account(t *testing.T, balance string) *domain.Account {
	t.Helper()
	acc, err := e.store.CreateAccount(context.Background(), dec(balance))
	require.NoError(t, err)
	return acc
}

func (e *testEnv) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	acc, err := e.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func (e *testEnv) transferCount(t *testing.T, accountID int64) int {
	t.Helper()
	transfers, err := e.store.ListAccountTransfers(context.Background(), accountID)
	require.NoError(t, err)
	return len(transfers)
}

func requireDecEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}
