package llm

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// backoffPolicy bounds a randomized exponential backoff loop.
type backoffPolicy struct {
	maxAttempts int
	minWait     time.Duration
	maxWait     time.Duration
}

// facadePolicy is the fixed retry policy applied at the Ask/AskTool/AskImage
// boundary, layered on top of the executor's own profile-driven policy.
var facadePolicy = backoffPolicy{
	maxAttempts: 6,
	minWait:     time.Second,
	maxWait:     60 * time.Second,
}

// wait returns a randomized exponential wait for the given zero-based
// attempt index, bounded by the policy's floor and ceiling.
func (p backoffPolicy) wait(attempt int) time.Duration {
	ceil := p.minWait << attempt
	if ceil > p.maxWait || ceil <= 0 {
		ceil = p.maxWait
	}
	if ceil <= p.minWait {
		return p.minWait
	}
	return p.minWait + rand.N(ceil-p.minWait)
}

// retryDo invokes fn up to policy.maxAttempts times, retrying only when
// classify reports the error as retryable. At least one attempt is
// always made, so a policy with zero attempts degrades to a single
// call. Each failed attempt is logged with its 1-based index, the
// terminal one included. When attempts are exhausted the last error is
// returned unchanged.
func retryDo[T any](ctx context.Context, log *slog.Logger, policy backoffPolicy, classify func(error) bool, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := policy.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !classify(err) {
			return zero, err
		}
		lastErr = err
		log.Error("completion attempt failed",
			"attempt", attempt+1,
			"error", err)

		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(policy.wait(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}
