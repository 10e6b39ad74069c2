package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/trace"
	"sync"
	"time"

	"github.com/rusq/whatsdump/internal/mcpclient"
)

// defNumAttempts is the default number of retry attempts.
const (
	defNumAttempts = 3
)

var (
	// maxAllowedWaitTime is the maximum time to wait for a transient error.
	maxAllowedWaitTime = 5 * time.Minute
	// retryDelay seeds the exponential backoff: the wait before attempt n
	// is retryDelay * 2^n, capped at retryDelay * 2^5 and at
	// maxAllowedWaitTime.
	retryDelay = 1 * time.Second
	lg         = slog.Default()
	// waitFn returns the amount of time to wait before retrying depending on
	// the current attempt.  This variable exists to reduce the test time.
	waitFn = expWait

	mu sync.RWMutex
)

// maxWaitExponent caps the backoff growth.
const maxWaitExponent = 5

// ErrRetryFailed is returned if number of retry attempts exceeded the retry
// attempts limit and function wasn't able to complete without errors.  The
// last transport error is wrapped alongside, so errors.As reaches it.
var ErrRetryFailed = errors.New("callback was unable to complete without errors within the allowed number of retries")

// Waiter gates an attempt.  Satisfied by *rate.Limiter and by the values
// that [Gate.Limiter] returns.
type Waiter interface {
	Wait(ctx context.Context) error
}

// WithRetry runs the callback function fn, waiting on lim before every
// attempt.  Connection and timeout failures are retried with exponential
// backoff up to maxAttempts times; a server throttling response honours the
// advertised retry-after.  Tool rejections are terminal and returned
// immediately.  When attempts run out, the last transport error is returned
// wrapped in [ErrRetryFailed].
func WithRetry(ctx context.Context, lim Waiter, maxAttempts int, fn func() error) error {
	var ok bool
	if maxAttempts == 0 {
		maxAttempts = defNumAttempts
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var err error
		trace.WithRegion(ctx, "WithRetry.wait", func() {
			err = lim.Wait(ctx)
		})
		if err != nil {
			return err
		}

		cbErr := fn()
		if cbErr == nil {
			ok = true
			observeOK(lim)
			break
		}
		lastErr = cbErr

		tracelogf(ctx, "error", "WithRetry: %[1]s (%[1]T) after %[2]d attempts", cbErr, attempt+1)
		var (
			rle *mcpclient.RateLimitedError
			ce  *mcpclient.ConnectionError
			te  *mcpclient.TimeoutError
		)
		switch {
		case errors.As(cbErr, &rle):
			observeThrottle(lim)
			delay := rle.RetryAfter
			if delay <= 0 {
				delay = waitFn(attempt)
			}
			tracelogf(ctx, "info", "got rate limited, sleeping %s", delay)
			time.Sleep(delay)
			continue
		case errors.As(cbErr, &ce):
			delay := waitFn(attempt)
			tracelogf(ctx, "info", "got connection error, sleeping %s", delay)
			time.Sleep(delay)
			continue
		case errors.As(cbErr, &te):
			delay := waitFn(attempt)
			tracelogf(ctx, "info", "got timeout after %s, sleeping %s", te.After, delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("callback error: %w", cbErr)
	}
	if !ok {
		return fmt.Errorf("%w: %w", ErrRetryFailed, lastErr)
	}
	return nil
}

// observeThrottle feeds provider throttling into the cooldown accounting of
// gate-backed waiters.
func observeThrottle(lim Waiter) {
	if cl, ok := lim.(*catLimiter); ok {
		cl.throttled()
	}
}

func observeOK(lim Waiter) {
	if cl, ok := lim.(*catLimiter); ok {
		cl.succeeded()
	}
}

// expWait is the wait time function.  Time is calculated as
// retryDelay * 2^attempt, capped at 2^maxWaitExponent growth and at
// maxAllowedWaitTime.
func expWait(attempt int) time.Duration {
	if attempt > maxWaitExponent {
		attempt = maxWaitExponent
	}
	mu.RLock()
	seed, maxWait := retryDelay, maxAllowedWaitTime
	mu.RUnlock()
	delay := seed * time.Duration(1<<uint(attempt))
	if delay > maxWait {
		return maxWait
	}
	return delay
}

func tracelogf(ctx context.Context, category string, format string, a ...any) {
	mu.RLock()
	defer mu.RUnlock()

	trace.Logf(ctx, category, format, a...)
	lg.DebugContext(ctx, fmt.Sprintf(format, a...))
}

// SetLogger sets the package logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		lg = slog.Default()
		return
	}
	lg = l
}

// SetMaxAllowedWaitTime sets the maximum time to wait for a transient error.
func SetMaxAllowedWaitTime(d time.Duration) {
	mu.Lock()
	defer mu.Unlock()

	maxAllowedWaitTime = d
}

// SetRetryDelay sets the backoff seed delay.
func SetRetryDelay(d time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	if d > 0 {
		retryDelay = d
	}
}
