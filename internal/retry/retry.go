// Package retry provides a bounded exponential backoff policy for remote
// calls. Both provider APIs throttle aggressively (HTTP 429), so every
// network call in the sync path runs through a Policy; only transient
// failures are retried and the attempt count is hard-bounded, so a
// persistently throttled run fails instead of silently truncating results.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"

	"github.com/sboros/pimsync/internal/syncer"
)

// Policy is a bounded retry policy. The zero value is not usable; start
// from DefaultPolicy.
type Policy struct {
	// MaxAttempts bounds the total number of calls, including the first.
	MaxAttempts int

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Sleep is injectable for deterministic tests. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// DefaultPolicy returns the policy used by all provider clients:
// three attempts with exponential backoff starting at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Do runs fn, retrying transient failures until the attempt budget is
// exhausted. The final error is returned wrapped with the operation name.
func (p Policy) Do(ctx context.Context, operation string, fn func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.Reset()

	var err error
	for attempt := 1; ; attempt++ {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}
		if err = fn(); err == nil {
			return nil
		}
		if !IsTransient(err) || attempt >= p.MaxAttempts {
			return fmt.Errorf("%s: %w", operation, err)
		}
		sleep(bo.NextBackOff())
	}
}

// IsTransient reports whether an error is worth retrying: rate limiting,
// server-side failures and network timeouts. Auth, data and conflict
// errors are never transient.
func IsTransient(err error) bool {
	var transient *syncer.TransientError
	if errors.As(err, &transient) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// TransientStatus reports whether an HTTP status code from a non-Google
// backend should be treated as transient.
func TransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
