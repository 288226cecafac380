package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/timelens/timelens/internal/app"
	"github.com/timelens/timelens/pkg/config"
	"github.com/timelens/timelens/pkg/observability"
)

func main() {
	root := &cobra.Command{
		Use:           "timelens",
		Short:         "Calendar time aggregation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newWorkerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newServeCmd runs the HTTP API together with the report scheduler.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the report scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, ctx, err := setup()
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Scheduler.Start(); err != nil {
				return err
			}
			defer container.Scheduler.Stop()

			errCh := make(chan error, 1)
			go func() {
				if err := container.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return container.Server.Shutdown(shutdownCtx)
		},
	}
}

// newWorkerCmd runs only the report scheduler, for deployments that
// separate email delivery from the API.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the report scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, ctx, err := setup()
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Scheduler.Start(); err != nil {
				return err
			}
			container.Logger.Info("worker running")

			<-ctx.Done()
			container.Scheduler.Stop()
			return nil
		},
	}
}

func setup() (*app.Container, context.Context, error) {
	logger := observability.LoggerFromEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return container, ctx, nil
}
