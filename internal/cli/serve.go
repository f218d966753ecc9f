package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"witweb-studio/internal/api"
	"witweb-studio/internal/services"
	"witweb-studio/internal/telemetry"
	"witweb-studio/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background workers",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(true)
	if err != nil {
		return err
	}
	defer a.close()
	log := logger.Named("server")

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "witweb-studio",
		ServiceVersion: a.cfg.ServiceVersion,
		OTLPEndpoint:   a.cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn("shutdown tracing", zap.Error(err))
		}
	}()

	engine := services.NewEngine(a.cfg, a.db, a.rdb)

	workers, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	var wg sync.WaitGroup
	if a.cfg.ReconcileEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Reconciler.Start(workers)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Dispatcher.Run(workers)
	}()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:           api.NewRouter(a.cfg, engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cancelWorkers()
	wg.Wait()
	return nil
}
