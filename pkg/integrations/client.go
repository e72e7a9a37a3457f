package integrations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/matzehuels/sheetslicer/pkg/cache"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/observability"
)

// Client provides shared HTTP functionality for remote API clients.
// It handles response caching, rate limiting, and common request headers.
//
// All methods are safe for concurrent use.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	namespace string
	ttl       time.Duration
	headers   map[string]string
	limiter   *rate.Limiter
}

// Option configures a [Client].
type Option func(*Client)

// WithTimeout sets the per-request timeout (default [DefaultTimeout]).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = NewHTTPClient(d) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithRateLimit spaces requests at least interval apart. Zero disables limiting.
func WithRateLimit(interval time.Duration) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewClient creates a Client with the given cache backend and default headers.
//
// Cache keys are prefixed with namespace and entries live for ttl. Pass nil
// for backend to disable response caching, and nil for headers if no default
// headers are needed.
func NewClient(backend cache.Cache, namespace string, ttl time.Duration, headers map[string]string, opts ...Option) *Client {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	c := &Client{
		http:      NewHTTPClient(DefaultTimeout),
		cache:     backend,
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
		limiter:   rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is read-bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
//
// Cache read or write failures degrade to a fetch; they are never returned.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	k := cache.Key(c.namespace, key)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, k); ok && json.Unmarshal(data, v) == nil {
			return nil
		}
	}
	if err := fetch(); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, k, data, c.ttl)
	}
	return nil
}

// Fetch performs an HTTP GET and returns the whole response body. Bodies are
// cached under the request URL unless refresh is set.
//
// A non-nil validate gates the cache: a fresh body it rejects is returned as
// its error and never stored, and a cached body it rejects is dropped and
// fetched again.
func (c *Client) Fetch(ctx context.Context, u string, refresh bool, validate func([]byte) error) ([]byte, error) {
	k := cache.Key(c.namespace, "url", u)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, k); ok {
			if validate == nil || validate(data) == nil {
				return data, nil
			}
			_ = c.cache.Delete(ctx, k)
		}
	}

	body, err := c.doRequest(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, transportError(err, u)
	}
	if validate != nil {
		if err := validate(data); err != nil {
			return nil, err
		}
	}
	_ = c.cache.Set(ctx, k, data, c.ttl)
	return data, nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, u string, v any) error {
	return c.GetWithHeaders(ctx, u, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, v any) error {
	body, err := c.doRequest(ctx, u, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return sserrors.Parse(err, "decode %s", redact(u))
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, u string, headers map[string]string) (io.ReadCloser, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, sserrors.Wrap(sserrors.ErrCodeTimeout, err, "rate limit %s", redact(u))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidInput, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	observability.HTTP().OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, host, path, err)
		return nil, transportError(err, u)
	}
	observability.HTTP().OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, u); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}
