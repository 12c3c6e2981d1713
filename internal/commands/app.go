package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/punchamoorthee/payledger/internal/config"
	"github.com/punchamoorthee/payledger/internal/logging"
	"github.com/punchamoorthee/payledger/internal/service"
	"github.com/punchamoorthee/payledger/internal/store"
	"github.com/punchamoorthee/payledger/internal/store/memory"
	"github.com/punchamoorthee/payledger/internal/store/postgres"
)

// app is the wiring shared by the commands that touch the ledger.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     store.Store
	transfers *service.TransferService
	scheduler *service.PaymentScheduler
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return nil, err
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Store ready", zap.String("driver", cfg.StoreDriver))

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     s,
		transfers: service.NewTransferService(s, logger.With(zap.String("component", "TransferService"))),
		scheduler: service.NewPaymentScheduler(s, logger.With(zap.String("component", "PaymentScheduler")), cfg.SweepWorkers),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(
			memory.WithLockTimeout(cfg.LockTimeout),
			memory.WithTxTimeout(cfg.TxTimeout),
		), nil
	case config.DriverPostgres:
		s, err := postgres.NewStore(ctx, cfg.DBSource, postgres.Options{
			LockTimeout: cfg.LockTimeout,
			TxTimeout:   cfg.TxTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
