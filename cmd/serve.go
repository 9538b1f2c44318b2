package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/kolscout/internal/api"
	"github.com/JakeFAU/kolscout/internal/app"
	"github.com/JakeFAU/kolscout/internal/config"
	"github.com/JakeFAU/kolscout/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// newApp is the service factory; tests swap it out.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API and the job workers",
		Long: `Starts the REST API and a fixed pool of workers draining the in-memory job
queue. SIGINT or SIGTERM drains in-flight requests and stops the workers.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer services.Close()

	server := api.NewServer(api.Deps{
		Jobs:       services.Jobs,
		Dispatcher: services.Dispatcher,
		Profiles:   services.Store,
		Candidates: services.Store,
		Campaigns:  services.Store,
		Roster:     services.Roster,
		Ready:      services.Ready,
	}, cfg, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Scout.Workers))
		services.Dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		services.Queue.Close()
		return nil
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}
