// Package retry implements a small exponential-backoff retry helper used
// by the subscribers (embeddings, call-prompt generation, analysis).
package retry

import (
	"context"
	"time"
)

// Do calls fn up to attempts times, sleeping base*2^n between attempt n
// and n+1 (n starting at 0). It returns the last error if every attempt
// fails, or nil on the first success. fn is never called again once ctx
// is cancelled.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts-1 {
			delay := base * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
