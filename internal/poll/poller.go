package poll

import (
	"fmt"
	"time"

	"jordanella.com/desktop-uitest/internal/logging"
	"jordanella.com/desktop-uitest/internal/uierr"
)

// DefaultInterval is the pause between polls when none is configured
const DefaultInterval = 200 * time.Millisecond

// Predicate reports whether a wait is satisfied. An error aborts the wait
// and is returned unchanged.
type Predicate func() (bool, error)

// Poller runs timeout-bounded wait and retry loops at a fixed interval
type Poller struct {
	clock  Clock
	logger *logging.Logger
}

// NewPoller creates a poller. A nil clock means the wall clock.
func NewPoller(clock Clock, logger *logging.Logger) *Poller {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Poller{clock: clock, logger: logger}
}

// Clock returns the poller's time source
func (p *Poller) Clock() Clock {
	return p.clock
}

// WaitFor evaluates pred until it succeeds or timeout elapses. It returns
// nil as soon as pred succeeds and *uierr.TimeoutError otherwise. The
// predicate is always evaluated at least once, and the call returns within
// timeout + interval.
func (p *Poller) WaitFor(operation string, timeout, interval time.Duration, pred Predicate) error {
	if timeout < 0 {
		return fmt.Errorf("%s: timeout must not be negative, got %v", operation, timeout)
	}
	if interval <= 0 {
		return fmt.Errorf("%s: interval must be greater than 0, got %v", operation, interval)
	}

	start := p.clock.Now()
	attempts := 0
	for {
		attempts++
		ok, err := pred()
		if err != nil {
			return err
		}
		if ok {
			p.logger.DebugWithContext("wait satisfied", map[string]interface{}{
				"operation": operation,
				"attempts":  attempts,
				"elapsed":   p.clock.Now().Sub(start),
			})
			return nil
		}
		if p.clock.Now().Sub(start) >= timeout {
			break
		}
		p.clock.Sleep(interval)
		if p.clock.Now().Sub(start) >= timeout {
			break
		}
	}

	p.logger.DebugWithContext("wait timed out", map[string]interface{}{
		"operation": operation,
		"attempts":  attempts,
		"timeout":   timeout,
	})
	return &uierr.TimeoutError{Operation: operation, Timeout: timeout, Attempts: attempts}
}

// Until is the boolean form of WaitFor for conditions that cannot fail
func (p *Poller) Until(operation string, timeout, interval time.Duration, cond func() bool) bool {
	err := p.WaitFor(operation, timeout, interval, func() (bool, error) {
		return cond(), nil
	})
	if err != nil && !uierr.IsTimeout(err) {
		p.logger.Error("wait aborted", err)
	}
	return err == nil
}

// RetryAction calls action at most maxRetries times, sleeping delay between
// failed attempts. The error of the final attempt is returned unchanged.
func (p *Poller) RetryAction(operation string, maxRetries int, delay time.Duration, action func() error) error {
	_, err := Retry(p, operation, maxRetries, delay, func() (struct{}, error) {
		return struct{}{}, action()
	})
	return err
}

// Retry is RetryAction for actions that produce a value
func Retry[T any](p *Poller, operation string, maxRetries int, delay time.Duration, action func() (T, error)) (T, error) {
	var zero T
	if maxRetries < 1 {
		return zero, fmt.Errorf("%s: max retries must be at least 1, got %d", operation, maxRetries)
	}
	if delay < 0 {
		return zero, fmt.Errorf("%s: delay must not be negative, got %v", operation, delay)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		value, err := action()
		if err == nil {
			return value, nil
		}
		lastErr = err

		p.logger.WarnWithContext("attempt failed", map[string]interface{}{
			"operation": operation,
			"attempt":   attempt,
			"of":        maxRetries,
			"error":     err.Error(),
		})

		if attempt < maxRetries {
			p.clock.Sleep(delay)
		}
	}
	return zero, lastErr
}
