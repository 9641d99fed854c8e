package osutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal exits the process immediately, so a hung login
// can always be aborted. The returned stop func cancels the context and
// returns once the signal handler is released.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return notifyContext(parent, make(chan os.Signal, 2), func() { os.Exit(130) })
}

func notifyContext(parent context.Context, sigs chan os.Signal, exit func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	finished := make(chan struct{})

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer close(finished)
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			slog.Debug("interrupted, cancelling")
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigs:
			exit()
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			close(done)
			cancel()
			<-finished
		})
	}
}
