package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/sheetslicer/pkg/cache"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/httputil"
)

func TestNewClient(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	defer c.Close()

	headers := map[string]string{"User-Agent": "test"}
	client := NewClient(c, "test", time.Hour, headers)

	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.http.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.http.Timeout, DefaultTimeout)
	}
	if client.cache != c {
		t.Error("NewClient() cache not set correctly")
	}
	if client.limiter == nil {
		t.Error("NewClient() should rate limit by default")
	}
}

func TestNewClientNilBackend(t *testing.T) {
	client := NewClient(nil, "test", time.Hour, nil, WithRateLimit(0), WithTimeout(time.Second))
	if client.cache == nil {
		t.Fatal("nil backend should fall back to a null cache")
	}
	if client.limiter != nil {
		t.Error("WithRateLimit(0) should disable limiting")
	}
	if client.http.Timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", client.http.Timeout)
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	client := NewClient(nil, "test", time.Hour, nil, WithRateLimit(0))

	var resp response
	if err := client.Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var gotDefault, gotOverride string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDefault = r.Header.Get("X-Default")
		gotOverride = r.Header.Get("X-Override")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(nil, "test", time.Hour,
		map[string]string{"X-Default": "default", "X-Override": "default"}, WithRateLimit(0))

	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{"X-Override": "overridden"}, &resp)
	if err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if gotDefault != "default" || gotOverride != "overridden" {
		t.Errorf("headers = %q, %q", gotDefault, gotOverride)
	}
}

func TestClientGet_Errors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  sserrors.Code
		retryable bool
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(404) }, sserrors.ErrCodeNotFound, false},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }, sserrors.ErrCodeNetwork, true},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(429) }, sserrors.ErrCodeNetwork, true},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(403) }, sserrors.ErrCodeNetwork, false},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("{not json")) }, sserrors.ErrCodeParse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(nil, "test", time.Hour, nil, WithRateLimit(0))
			var resp map[string]any
			err := client.Get(context.Background(), server.URL, &resp)
			if !sserrors.Is(err, tt.wantCode) {
				t.Errorf("Get() error = %v, want code %s", err, tt.wantCode)
			}
			var retryErr *httputil.RetryableError
			if got := errors.As(err, &retryErr); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClientGet_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(nil, "test", time.Hour, nil, WithRateLimit(0), WithTimeout(50*time.Millisecond))
	var resp map[string]any
	err := client.Get(context.Background(), server.URL, &resp)
	if !sserrors.Is(err, sserrors.ErrCodeNetwork) {
		t.Errorf("Get() error = %v, want NETWORK_ERROR", err)
	}
	if !sserrors.Is(err, sserrors.ErrCodeTimeout) {
		t.Errorf("Get() error = %v, want TIMEOUT in chain", err)
	}
}

func TestClientFetch_Cached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[1,2,3]`))
	}))
	defer server.Close()

	c, _ := cache.NewFileCache(t.TempDir())
	client := NewClient(c, "test", time.Hour, nil, WithRateLimit(0))
	ctx := context.Background()

	for range 3 {
		data, err := client.Fetch(ctx, server.URL+"/cards?query=x", false, nil)
		if err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
		if string(data) != `[1,2,3]` {
			t.Errorf("Fetch() = %s", data)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}

	if _, err := client.Fetch(ctx, server.URL+"/cards?query=x", true, nil); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("refresh should bypass the cache, hits = %d", n)
	}
}

func TestClientCached(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	defer c.Close()
	client := NewClient(c, "test", time.Hour, nil)

	type testData struct {
		Value string `json:"value"`
	}
	fetchCount := 0
	fetch := func(v *testData) func() error {
		return func() error {
			fetchCount++
			*v = testData{Value: "fetched"}
			return nil
		}
	}

	var first testData
	if err := client.Cached(context.Background(), "k", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	var second testData
	if err := client.Cached(context.Background(), "k", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetchCount != 1 {
		t.Errorf("fetch count = %d, want 1", fetchCount)
	}
	if second.Value != "fetched" {
		t.Errorf("cached value = %q", second.Value)
	}

	var third testData
	if err := client.Cached(context.Background(), "k", true, &third, fetch(&third)); err != nil {
		t.Fatal(err)
	}
	if fetchCount != 2 {
		t.Errorf("refresh fetch count = %d, want 2", fetchCount)
	}
}

func TestClientCachedFetchError(t *testing.T) {
	client := NewClient(nil, "test", time.Hour, nil)
	want := sserrors.New(sserrors.ErrCodeNotFound, "missing")

	var value string
	err := client.Cached(context.Background(), "k", false, &value, func() error { return want })
	if err != want {
		t.Errorf("Cached() error = %v, want %v", err, want)
	}
}

func TestClientFetch_RejectedBodyNotCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Write([]byte(`<html>maintenance</html>`))
			return
		}
		w.Write([]byte(`[1,2,3]`))
	}))
	defer server.Close()

	c, _ := cache.NewFileCache(t.TempDir())
	client := NewClient(c, "test", time.Hour, nil, WithRateLimit(0))
	ctx := context.Background()
	isList := func(data []byte) error {
		var v []int
		if err := json.Unmarshal(data, &v); err != nil {
			return sserrors.Parse(err, "not a list")
		}
		return nil
	}
	u := server.URL + "/cards?query=x"

	if _, err := client.Fetch(ctx, u, false, isList); !sserrors.Is(err, sserrors.ErrCodeParse) {
		t.Fatalf("first Fetch() error = %v, want PARSE_ERROR", err)
	}
	for range 2 {
		data, err := client.Fetch(ctx, u, false, isList)
		if err != nil {
			t.Fatalf("Fetch() after a bad reply: %v", err)
		}
		if string(data) != `[1,2,3]` {
			t.Errorf("Fetch() = %s", data)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hit %d times, want 2", n)
	}
}

func TestClientFetch_StaleCachedBodyRefetched(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[1]`))
	}))
	defer server.Close()

	c, _ := cache.NewFileCache(t.TempDir())
	client := NewClient(c, "test", time.Hour, nil, WithRateLimit(0))
	ctx := context.Background()
	u := server.URL + "/cards?query=y"
	if err := c.Set(ctx, cache.Key("test", "url", u), []byte(`garbage`), time.Hour); err != nil {
		t.Fatal(err)
	}

	data, err := client.Fetch(ctx, u, false, func(data []byte) error {
		return json.Unmarshal(data, new([]int))
	})
	if err != nil || string(data) != `[1]` {
		t.Fatalf("Fetch() = %s, %v", data, err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestClientRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(nil, "test", time.Hour, nil, WithRateLimit(30*time.Millisecond))
	start := time.Now()
	for range 3 {
		var v map[string]any
		if err := client.Get(context.Background(), server.URL, &v); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("3 requests took %v, want at least 2 intervals", elapsed)
	}
}

func TestClientRateLimit_Cancelled(t *testing.T) {
	client := NewClient(nil, "test", time.Hour, nil, WithRateLimit(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var v map[string]any
	err := client.Get(ctx, "http://127.0.0.1:1/", &v)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

func TestClientRateLimit_DeadlineTooShort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(nil, "test", time.Hour, nil, WithRateLimit(time.Hour))
	var v map[string]any
	if err := client.Get(context.Background(), server.URL, &v); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := client.Get(ctx, server.URL, &v)
	if !sserrors.Is(err, sserrors.ErrCodeTimeout) {
		t.Errorf("Get() error = %v, want TIMEOUT", err)
	}
	if !httputil.IsRetryable(err) {
		t.Error("a rate limit timeout should be retryable")
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code     int
		wantCode sserrors.Code
	}{
		{200, ""},
		{404, sserrors.ErrCodeNotFound},
		{500, sserrors.ErrCodeNetwork},
		{503, sserrors.ErrCodeNetwork},
		{400, sserrors.ErrCodeNetwork},
	}
	for _, tt := range tests {
		err := checkStatus(tt.code, "https://arkhamdb.com/api/public/cards?query=x")
		if tt.wantCode == "" {
			if err != nil {
				t.Errorf("checkStatus(%d) = %v, want nil", tt.code, err)
			}
			continue
		}
		if !sserrors.Is(err, tt.wantCode) {
			t.Errorf("checkStatus(%d) = %v, want %s", tt.code, err, tt.wantCode)
		}
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://arkhamdb.com/api/public/cards?query=roland&encounter=1")
	if got != "https://arkhamdb.com/api/public/cards" {
		t.Errorf("redact() = %q", got)
	}
}
