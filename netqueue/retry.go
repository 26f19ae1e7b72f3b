package netqueue

import (
	"math"
	"time"

	"github.com/prebid/prebid-waterfall/config"
	"github.com/prebid/prebid-waterfall/errortypes"
)

// RetryPolicy decides how often, and how far apart, a failed attempt is repeated.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy retries twice, starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 2.0,
	}
}

// NewRetryPolicy reads the policy from the network queue configuration.
func NewRetryPolicy(cfg config.NetworkQueue) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      cfg.InitialBackoff(),
		MaxDelay:          cfg.MaxBackoff(),
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
}

// Backoff returns the delay before retry number attempt+1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt)))
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Retryable returns true for transport failures which may succeed when repeated. A response from the
// server, even a failed one, is never retried.
func Retryable(err error) bool {
	switch errortypes.ReadCode(err) {
	case errortypes.TimeoutErrorCode, errortypes.ConnectionFailureErrorCode:
		return true
	}
	return false
}
