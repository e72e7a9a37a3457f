// Package integrations provides HTTP clients for remote card databases.
//
// Each remote service has its own subpackage; today that is [arkhamdb].
// The [Client] type holds the plumbing they share:
//
//   - A 10 second request timeout ([DefaultTimeout])
//   - Request spacing through a token bucket ([DefaultInterval])
//   - Optional response caching through a [cache.Cache] backend
//   - Status mapping to coded errors: 404 is NOT_FOUND, transport failures
//     and 5xx are NETWORK_ERROR, undecodable bodies are PARSE_ERROR
//
// Requests are never retried automatically. Transient failures are wrapped
// in [httputil.RetryableError] so a caller can hand them to [httputil.Retry]
// when the user asks for another attempt.
//
// [arkhamdb]: github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb
// [cache.Cache]: github.com/matzehuels/sheetslicer/pkg/cache.Cache
// [httputil.RetryableError]: github.com/matzehuels/sheetslicer/pkg/httputil.RetryableError
// [httputil.Retry]: github.com/matzehuels/sheetslicer/pkg/httputil.Retry
package integrations
