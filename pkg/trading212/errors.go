package trading212

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrInvalidArgument reports a bad enum value or missing input, detected
	// before any network call.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrParse reports an expected field missing from scraped HTML or text.
	ErrParse = errors.New("parse error")

	// ErrTokenNotFound means the login page carried no login[_token] input.
	ErrTokenNotFound = fmt.Errorf("%w: login token not found", ErrParse)

	// ErrSessionCookieNotFound means authentication left neither the demo nor
	// the live trading session cookie in the jar.
	ErrSessionCookieNotFound = errors.New("trading session cookie not found")

	ErrAccountNotFound = errors.New("account not found")
	ErrOrderNotFound   = errors.New("order not found")

	// ErrInvalidRequest reports a price combination the order's type does not accept.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoMarketData means a candle query came back empty.
	ErrNoMarketData = errors.New("no market data")
)

const maxErrorBody = 500

// HTTPError is returned for every non-2xx response. It is never retried.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Status)
}

func newHTTPError(method, url string, statusCode int, status string, body []byte) *HTTPError {
	return &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Status:     status,
		Body:       truncate(string(body), maxErrorBody),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
