package arkhamdb

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetslicer/pkg/buildinfo"
	"github.com/matzehuels/sheetslicer/pkg/cache"
	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
	"github.com/matzehuels/sheetslicer/pkg/integrations"
)

const (
	// DefaultBaseURL is the public ArkhamDB API root.
	DefaultBaseURL = "https://arkhamdb.com/api/public"

	// DefaultImageBase is prefixed to the relative image paths in card records.
	DefaultImageBase = "https://arkhamdb.com"

	// DefaultLimit caps the number of cards one search yields.
	DefaultLimit = 200

	// MinQueryLength is the shortest query that reaches the network.
	MinQueryLength = 2
)

// Options configures a [Client]. The zero value is usable.
type Options struct {
	// BaseURL overrides [DefaultBaseURL]; tests point it at an httptest server.
	BaseURL string

	// ImageBase overrides [DefaultImageBase].
	ImageBase string

	// Limit caps search results (default [DefaultLimit]).
	Limit int

	// Timeout bounds each request (default 10s).
	Timeout time.Duration

	// Interval is the minimum spacing between requests (default 100ms).
	// A negative value disables rate limiting.
	Interval time.Duration

	// Backend is an optional response cache that outlives the process.
	// Nil keeps caching in memory only.
	Backend cache.Cache

	// TTL is the lifetime of entries in Backend (default [cache.TTLSearch]).
	TTL time.Duration

	// Logger receives parse warnings and search timings. Nil discards.
	Logger *log.Logger
}

// Client searches and fetches ArkhamDB cards.
//
// Cards are cached in memory by code for the life of the Client. Inserts
// are serialized: when two goroutines fetch the same code concurrently the
// first insert wins and the second is dropped.
//
// All methods are safe for concurrent use.
type Client struct {
	api       *integrations.Client
	baseURL   string
	imageBase string
	limit     int
	logger    *log.Logger

	mu    sync.RWMutex
	cards map[string]Card
}

// NewClient creates an ArkhamDB client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ImageBase == "" {
		opts.ImageBase = DefaultImageBase
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.TTLSearch
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	var clientOpts []integrations.Option
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, integrations.WithTimeout(opts.Timeout))
	}
	switch {
	case opts.Interval < 0:
		clientOpts = append(clientOpts, integrations.WithRateLimit(0))
	case opts.Interval > 0:
		clientOpts = append(clientOpts, integrations.WithRateLimit(opts.Interval))
	}

	headers := map[string]string{
		"User-Agent": buildinfo.UserAgent(),
		"Accept":     "application/json",
	}
	return &Client{
		api:       integrations.NewClient(opts.Backend, "arkhamdb", opts.TTL, headers, clientOpts...),
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		imageBase: opts.ImageBase,
		limit:     opts.Limit,
		logger:    opts.Logger,
		cards:     make(map[string]Card),
	}
}

// Search requests one page of cards matching query.
//
// A transport failure is returned before iteration as a NETWORK_ERROR and the
// caller should treat the search as empty. Queries shorter than
// [MinQueryLength] yield nothing without a request.
//
// The returned sequence is lazy and single-use. Records are decoded on the
// first pull; a malformed record is logged and skipped. Matches are ranked
// exact name or code first, then name prefix, subname, substring, traits and
// rules text. Encounter cards are dropped unless includeEncounters is set.
// Ranging over the sequence a second time yields nothing.
func (c *Client) Search(ctx context.Context, query string, includeEncounters bool) (iter.Seq[Card], error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < MinQueryLength {
		return func(func(Card) bool) {}, nil
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("encounter", encounterParam(includeEncounters))
	u := c.baseURL + "/cards?" + params.Encode()

	start := time.Now()
	var page []json.RawMessage
	_, err := c.api.Fetch(ctx, u, false, func(data []byte) error {
		page = nil
		if err := json.Unmarshal(data, &page); err != nil {
			return sserrors.Parse(err, "search %q: response is not a card list", q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var used atomic.Bool
	return func(yield func(Card) bool) {
		if used.Swap(true) {
			return
		}
		r := newRanker(q, c.limit)
		skipped := 0
		for i, raw := range page {
			card, err := decodeCard(raw, c.imageBase)
			if err != nil {
				skipped++
				c.logger.Warn("skipping malformed card", "query", q, "index", i, "err", err)
				continue
			}
			if !includeEncounters && card.IsEncounter {
				continue
			}
			if !r.add(card) {
				break
			}
		}
		results := r.ranked()
		c.logger.Debug("search", "query", q, "page", len(page), "matches", len(results),
			"skipped", skipped, "duration", time.Since(start).Round(time.Millisecond))

		for _, card := range results {
			if !yield(c.store(card)) {
				return
			}
		}
	}, nil
}

// Card returns the card with the given code, from the in-memory cache when
// possible. An unknown code is NOT_FOUND.
func (c *Client) Card(ctx context.Context, code string) (Card, error) {
	if card, ok := c.Cached(code); ok {
		return card, nil
	}
	if err := sserrors.ValidateCardCode(code); err != nil {
		return Card{}, err
	}

	var a apiCard
	err := c.api.Cached(ctx, cache.Key("card", code), false, &a, func() error {
		return c.api.Get(ctx, c.baseURL+"/card/"+code+".json", &a)
	})
	if err != nil {
		return Card{}, err
	}
	if a.Code == "" || a.Name == "" {
		return Card{}, sserrors.Parse(nil, "card %s: record without code or name", code)
	}
	return c.store(a.card(c.imageBase)), nil
}

// Cached returns a card from the in-memory cache without any network access.
func (c *Client) Cached(code string) (Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.cards[code]
	return card, ok
}

// CacheLen returns the number of cached cards.
func (c *Client) CacheLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// store inserts card unless its code is already cached, and returns the
// cached value. The first writer wins.
func (c *Client) store(card Card) Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cards[card.Code]; ok {
		return existing
	}
	c.cards[card.Code] = card
	return card
}

func encounterParam(include bool) string {
	if include {
		return "1"
	}
	return "0"
}
