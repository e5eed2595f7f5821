package cmd

import (
	"context"
	"os"
)

// Interrupt makes commands use ctx in place of signal handling until the
// returned func is called.
func Interrupt(ctx context.Context) (restore func()) {
	notifyContext = func(parent context.Context, _ ...os.Signal) (context.Context, context.CancelFunc) {
		return context.WithCancel(ctx)
	}

	return func() {
		notifyContext = signalNotifyContext
	}
}
