package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// exitInterrupted is the conventional status for a process killed by SIGINT.
const exitInterrupted = 130

// shutdownContext returns a context canceled by the first SIGINT or SIGTERM,
// with the signal recorded as the cause. Long transfers and servers get to
// stop cleanly; a second signal exits at once.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		var sig os.Signal

		select {
		case sig = <-sigCh:
		case <-ctx.Done():
			return
		}

		logger.Info("shutting down", slog.String("signal", sig.String()))
		cancel(fmt.Errorf("received %s", sig))

		select {
		case sig = <-sigCh:
			logger.Warn("second signal, exiting now", slog.String("signal", sig.String()))
			os.Exit(exitInterrupted)
		case <-parent.Done():
		}
	}()

	return ctx
}
