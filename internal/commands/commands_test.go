package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/punchamoorthee/payledger/internal/config"
	"github.com/punchamoorthee/payledger/internal/models"
	"github.com/punchamoorthee/payledger/internal/service"
	"github.com/punchamoorthee/payledger/internal/store/memory"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "sweep", "migrate", "seed", "bench"}, names)
}

func TestOpenStore_Memory(t *testing.T) {
	s, err := openStore(context.Background(), &config.Config{StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &memory.Store{}, s)

	_, err = openStore(context.Background(), &config.Config{StoreDriver: "sqlite"})
	require.Error(t, err)
}

func TestRunSweep(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	scheduler := service.NewPaymentScheduler(s, zaptest.NewLogger(t), 2)

	payer, err := s.CreateAccount(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)
	broke, err := s.CreateAccount(ctx, decimal.Zero)
	require.NoError(t, err)
	payee, err := s.CreateAccount(ctx, decimal.Zero)
	require.NoError(t, err)

	today := time.Date(2020, 8, 31, 0, 0, 0, 0, time.UTC)
	_, err = scheduler.Schedule(ctx, service.ScheduleParams{
		FromAccountID: payer.ID, ToAccountID: payee.ID, Amount: decimal.NewFromInt(10), Day: 5,
	}, today)
	require.NoError(t, err)

	due := time.Date(2020, 9, 5, 0, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	require.NoError(t, runSweep(ctx, scheduler, due, &out))

	var report models.SweepReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "2020-09-05", report.Date)
	assert.Equal(t, 1, report.Executed)

	_, err = scheduler.Schedule(ctx, service.ScheduleParams{
		FromAccountID: broke.ID, ToAccountID: payee.ID, Amount: decimal.NewFromInt(10), Day: 5,
	}, due)
	require.NoError(t, err)

	out.Reset()
	err = runSweep(ctx, scheduler, time.Date(2020, 10, 5, 0, 0, 0, 0, time.UTC), &out)
	require.Error(t, err)
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 1, report.Executed)
	assert.Len(t, report.Failures, 1)
}

func TestRunServe_MigrateFlagWithMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.DriverMemory)
	t.Setenv("SERVER_PORT", "0")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- runServe(ctx, true) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}
}
