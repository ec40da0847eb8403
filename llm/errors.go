package llm

import (
	"errors"
	"net"
	"net/url"

	"github.com/openai/openai-go/v3"
)

// ErrValidation marks malformed input or an empty provider response.
// Errors in this class are never retried.
var ErrValidation = errors.New("validation failed")

// ErrMessageType marks a message value whose dynamic type is neither a
// canonical Message nor a raw map.
var ErrMessageType = errors.New("unsupported message type")

// ErrNegativeCost marks an attempt to record a negative cost. This is a
// programming error on the caller's side, not a provider condition.
var ErrNegativeCost = errors.New("cost cannot be negative")

// transientStatusCodes are the HTTP statuses treated as retryable:
// rate limiting, bad gateway, service unavailable, gateway timeout.
var transientStatusCodes = map[int]bool{
	429: true,
	502: true,
	503: true,
	504: true,
}

// IsTransient reports whether err is a provider failure expected to
// resolve on its own: rate limiting, connection failure, or temporary
// unavailability. Everything else, including validation errors, must
// propagate without retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return transientStatusCodes[apiErr.StatusCode]
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return false
}
