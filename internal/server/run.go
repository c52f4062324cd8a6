package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"
)

const defaultDrainTimeout = 10 * time.Second

// Run starts the HTTP server and drains in-flight requests when the process
// receives an interrupt or the parent context ends. A non-positive drain
// duration falls back to the default.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger, drain time.Duration) error {
	if drain <= 0 {
		drain = defaultDrainTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		logger.Info("server stopping", "reason", "context canceled")
	case sig := <-sigCh:
		logger.Info("server stopping", "reason", "signal", "signal", sig.String())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped", "drain_timeout", drain.String())
	return nil
}
