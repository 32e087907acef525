package cultural

import "strconv"

// HTTPError is a non-2xx response from the cultural provider. Rate limits,
// request timeouts and server-side failures are retryable.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return "cultural provider returned status " + strconv.Itoa(e.StatusCode) + ": " + e.Message
}

func (e *HTTPError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode == 408 || e.StatusCode >= 500
}
