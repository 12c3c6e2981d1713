package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/punchamoorthee/payledger/internal/api"
	"github.com/punchamoorthee/payledger/internal/config"
	"github.com/punchamoorthee/payledger/internal/store/postgres"
)

func newServeCommand() *cobra.Command {
	var runMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, runMigrations)
		},
	}

	cmd.Flags().BoolVar(&runMigrations, "migrate", false, "apply schema migrations before serving (postgres only)")

	return cmd
}

func runServe(ctx context.Context, runMigrations bool) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if runMigrations && a.cfg.StoreDriver == config.DriverPostgres {
		if err := postgres.Migrate(a.cfg.DBSource, postgres.Up, a.logger); err != nil {
			return err
		}
	}

	handler := api.NewHandler(a.store, a.transfers, a.scheduler,
		a.logger.With(zap.String("component", "HTTPHandler")),
		api.WithLocation(a.cfg.Location),
	)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	handler.Register(r)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}
