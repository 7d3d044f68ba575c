package core

import (
	"context"
	"time"
)

// retryBase is the delay before the second attempt; it doubles per attempt.
var retryBase = 100 * time.Millisecond

// retry calls fn up to attempts times, backing off between failures. It
// returns the last error, or ctx.Err() when ctx ends first.
func retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := retryBase
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return err
}
