package integrations

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/httputil"
)

const (
	// DefaultTimeout bounds every request. A request that exceeds it
	// resolves as a NETWORK_ERROR instead of hanging the caller.
	DefaultTimeout = 10 * time.Second

	// DefaultInterval is the minimum spacing between two requests of one client.
	DefaultInterval = 100 * time.Millisecond
)

// NewHTTPClient creates an HTTP client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }

// transportError classifies a failed round trip. Timeouts carry the TIMEOUT
// code under NETWORK_ERROR so callers can match either.
func transportError(err error, u string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		err = sserrors.Wrap(sserrors.ErrCodeTimeout, err, "request timed out")
	}
	return &httputil.RetryableError{Err: sserrors.Network(err, "GET %s", redact(u))}
}

func checkStatus(code int, u string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return sserrors.New(sserrors.ErrCodeNotFound, "GET %s: not found", redact(u))
	case code == http.StatusTooManyRequests || code >= 500:
		return &httputil.RetryableError{Err: sserrors.Network(nil, "GET %s: status %d", redact(u), code)}
	default:
		return sserrors.Network(nil, "GET %s: status %d", redact(u), code)
	}
}

// redact strips the query string from u for error messages.
func redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	parsed.RawQuery = ""
	return parsed.String()
}
