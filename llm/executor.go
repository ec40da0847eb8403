package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/caravel-hq/caravel/config"
)

// executor issues provider calls for one client: it applies the optional
// client-side request throttle, the profile's transient-retry policy for
// buffered calls, and full consumption of incremental streams.
type executor struct {
	provider Provider
	profile  config.Profile
	limiter  *rate.Limiter
	log      *slog.Logger
}

func newExecutor(provider Provider, p config.Profile, log *slog.Logger) *executor {
	e := &executor{provider: provider, profile: p, log: log}
	if p.RequestsPerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(float64(p.RequestsPerMinute)/60.0), p.RequestsPerMinute)
	}
	return e
}

// policy is the profile-level retry policy for the buffered path.
func (e *executor) policy() backoffPolicy {
	return backoffPolicy{
		maxAttempts: e.profile.Retries,
		minWait:     e.profile.RetryMinWait,
		maxWait:     e.profile.RetryMaxWait,
	}
}

// throttle blocks until the request is allowed, or returns the context
// error. A nil limiter admits everything immediately.
func (e *executor) throttle(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// complete issues a buffered call under the profile's retry policy.
// Only transient errors are retried; exhaustion returns the last
// transient error unchanged.
func (e *executor) complete(ctx context.Context, req Request) (*Response, error) {
	return retryDo(ctx, e.log, e.policy(), IsTransient, func() (*Response, error) {
		return e.completeOnce(ctx, req)
	})
}

// completeOnce issues a single buffered call with no retry. The facade
// paths that own their retry policy use this directly.
func (e *executor) completeOnce(ctx context.Context, req Request) (*Response, error) {
	if err := e.throttle(ctx); err != nil {
		return nil, err
	}
	return e.provider.Complete(ctx, req)
}

// stream issues the call in streaming mode and consumes the chunk
// sequence to exhaustion, concatenating deltas. onDelta, when non-nil,
// observes each fragment as it arrives. Usage from the terminal chunk
// is returned when the provider supplies it. An empty accumulated
// result is a validation error.
func (e *executor) stream(ctx context.Context, req Request, onDelta func(string)) (string, *Usage, error) {
	if err := e.throttle(ctx); err != nil {
		return "", nil, err
	}

	s, err := e.provider.Stream(ctx, req)
	if err != nil {
		return "", nil, err
	}
	defer s.Close()

	var b strings.Builder
	var usage *Usage
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}
		if chunk.Delta != "" {
			b.WriteString(chunk.Delta)
			if onDelta != nil {
				onDelta(chunk.Delta)
			}
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", nil, fmt.Errorf("%w: empty response from streaming call", ErrValidation)
	}
	return text, usage, nil
}
