package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ssMMiles/easy-roles/pkg/log"
)

// WaitForInterruptWithCallback blocks until SIGINT or SIGTERM, then runs
// the shutdown callback before returning.
func WaitForInterruptWithCallback(callback func()) {
	waitForInterruptContext(context.Background(), callback)
}

// waitForInterruptContext allows tests to inject a context that can be cancelled without real OS signals.
func waitForInterruptContext(parent context.Context, callback func()) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("Received interrupt; executing shutdown callback")

	if callback != nil {
		callback()
	}
}
