// Copyright (c) 2024-2026 The mnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownListener returns a context that is canceled when SIGINT or
// SIGTERM is received.  Further signals after the first are logged so the
// user can tell the process is draining rather than hung.
func shutdownListener() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		mndLog.Infof("Received signal (%s).  Shutting down...", sig)
		cancel()

		for sig := range c {
			mndLog.Infof("Received signal (%s).  Already shutting "+
				"down...", sig)
		}
	}()

	return ctx
}

// shutdownRequested returns whether the context returned by
// shutdownListener has been canceled.
func shutdownRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}

	return false
}
