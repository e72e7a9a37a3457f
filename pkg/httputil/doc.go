// Package httputil provides HTTP helpers shared by the card database client
// and its callers.
//
// # Retry
//
// The lookup client never retries silently: a failed search is reported to
// the caller as a NETWORK_ERROR and treated as an empty result. [Retry] is
// the helper a caller uses when the user asks to try again:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    seq, err = client.Search(ctx, query, true)
//	    return err
//	})
//
// Only transient failures are retried: errors wrapped in [RetryableError]
// and errors carrying the NETWORK_ERROR or TIMEOUT code. A NOT_FOUND or
// PARSE_ERROR returns immediately.
package httputil
