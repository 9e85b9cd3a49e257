package client

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds returned by every client call. Match them with errors.Is.
var (
	// ErrNetwork covers transport failures and non-2xx answers from public endpoints.
	ErrNetwork = goerr.New("network error")
	// ErrDecode covers payloads that are not well-formed JSON of the expected shape.
	ErrDecode = goerr.New("decode error")
	// ErrAuth covers rejected credentials, missing tokens and any refusal of a
	// protected endpoint.
	ErrAuth = goerr.New("auth error")
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Kind names the error class of err: "auth", "decode", "network", or "" when
// err is nil or unclassified. Auth wins over the others.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrNetwork):
		return "network"
	}
	return ""
}

// classify tags cause with one of the error kinds while keeping it in the chain.
func classify(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
