package ai

import (
	"context"
	"errors"
	"net"
	"strconv"
)

var ErrUnavailable = errors.New("reasoning client unavailable")

// HTTPError is a non-2xx response from the reasoning provider.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return "reasoning provider http " + strconv.Itoa(e.StatusCode) + ": " + e.Message
}

// Transient reports whether the failure is worth retrying: rate limits,
// upstream overload and gateway errors. Other 4xx responses mean the request
// itself is bad and will not improve on retry.
func (e *HTTPError) Transient() bool {
	if e.StatusCode == 429 || e.StatusCode == 408 {
		return true
	}
	return e.StatusCode >= 500
}

// transienter is implemented by errors that classify themselves as
// retryable. Both provider clients use it so the pipeline retry policy can
// stay provider-agnostic.
type transienter interface {
	Transient() bool
}

// IsTransient classifies an error for retry purposes. Timeouts and network
// failures are transient; malformed or rejected requests are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var classified transienter
	if errors.As(err, &classified) {
		return classified.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
