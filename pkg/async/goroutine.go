// Package async provides helpers for running background work safely.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeGo executes a function in a goroutine with context cancellation,
// a timeout, and panic recovery. Use this instead of bare `go func()`
// for fire-and-forget work so a panic cannot crash the process.
//
// Example:
//
//	SafeGo(ctx, log, 10*time.Second, "stats snapshot", func(ctx context.Context) error {
//	    return snapshot(ctx)
//	})
func SafeGo(parentCtx context.Context, log *logrus.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"task":  taskName,
					"panic": r,
				}).Errorf("panic in background task\n%s", debug.Stack())
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithField("task", taskName).WithError(err).Error("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, log *logrus.Logger, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, log, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
