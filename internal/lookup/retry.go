package lookup

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"
)

const maxBackoff = 10 * time.Second

// transientError marks a directory failure worth retrying: a network error,
// a 5xx or a 429.
type transientError struct {
	Err error
}

func (e *transientError) Error() string { return e.Err.Error() }
func (e *transientError) Unwrap() error { return e.Err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func transientStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// backoff returns the wait before attempt n (0-indexed) with up to 50% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
