// Package lookup runs card searches in the background, one slot at a time.
//
// A slot is one place in the caller that shows search results, such as the
// name dialog of a tile. A new search in a slot cancels the request still
// running there, and the result of a superseded request is discarded even
// when its reply arrives after the newer one. Results of all slots come
// back through [Coordinator.Next], which is meant for a single consumer:
//
//	co := lookup.New(client, logger)
//	defer co.Close()
//
//	co.Search(ctx, "front:12", "rol", true)
//	co.Search(ctx, "front:12", "roland", true) // cancels "rol"
//
//	res, err := co.Next(ctx) // always the "roland" result
package lookup

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetslicer/pkg/integrations/arkhamdb"
)

// ErrClosed is returned by [Coordinator.Next] after [Coordinator.Close].
var ErrClosed = errors.New("lookup: coordinator closed")

// Searcher runs one card search. [arkhamdb.Client] implements it.
type Searcher interface {
	Search(ctx context.Context, query string, includeEncounters bool) (iter.Seq[arkhamdb.Card], error)
}

// Result is the outcome of one search request.
type Result struct {
	Slot  string
	Seq   uint64
	Query string
	Cards []arkhamdb.Card

	// Err is set when the search failed. Cards is empty in that case.
	Err error
}

type slotState struct {
	seq    uint64
	cancel context.CancelFunc
}

// Coordinator serializes searches per slot. Slots are independent and run
// in parallel. All methods are safe for concurrent use, but Next should
// have a single caller.
type Coordinator struct {
	searcher Searcher
	logger   *log.Logger
	results  chan Result

	mu     sync.Mutex
	slots  map[string]*slotState
	closed bool
	wg     sync.WaitGroup
}

// New creates a Coordinator over s. A nil logger discards.
func New(s Searcher, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Coordinator{
		searcher: s,
		logger:   logger,
		results:  make(chan Result, 16),
		slots:    make(map[string]*slotState),
	}
}

// Search starts a request for slot, cancelling the slot's previous request,
// and returns the new request's sequence number. It returns 0 after Close.
func (c *Coordinator) Search(ctx context.Context, slot, query string, includeEncounters bool) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	st := c.slots[slot]
	if st == nil {
		st = &slotState{}
		c.slots[slot] = st
	}
	if st.cancel != nil {
		st.cancel()
	}
	st.seq++
	seq := st.seq
	reqCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(reqCtx, cancel, Result{Slot: slot, Seq: seq, Query: query}, includeEncounters)
	return seq
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, res Result, includeEncounters bool) {
	defer c.wg.Done()
	defer cancel()

	seq, err := c.searcher.Search(ctx, res.Query, includeEncounters)
	if err == nil {
		for card := range seq {
			if ctx.Err() != nil {
				break
			}
			res.Cards = append(res.Cards, card)
		}
	}
	res.Err = err

	if ctx.Err() != nil {
		c.logger.Debug("search superseded", "slot", res.Slot, "seq", res.Seq, "query", res.Query)
		return
	}
	select {
	case c.results <- res:
	case <-ctx.Done():
	}
}

// Next blocks until the newest request of some slot completes and returns
// its result. Results of cancelled or superseded requests are dropped here
// even if they were already queued.
func (c *Coordinator) Next(ctx context.Context) (Result, error) {
	for {
		select {
		case res, ok := <-c.results:
			if !ok {
				return Result{}, ErrClosed
			}
			if c.current(res.Slot, res.Seq) {
				return res, nil
			}
			c.logger.Debug("discarding stale result", "slot", res.Slot, "seq", res.Seq, "query", res.Query)
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

func (c *Coordinator) current(slot string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.slots[slot]
	return st != nil && st.seq == seq
}

// Cancel abandons the outstanding request of slot, if any. Its result
// will not be delivered.
func (c *Coordinator) Cancel(slot string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.slots[slot]; st != nil {
		if st.cancel != nil {
			st.cancel()
			st.cancel = nil
		}
		st.seq++
	}
}

// Close cancels every outstanding request, waits for the workers to exit
// and ends Next with [ErrClosed]. Close is idempotent.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, st := range c.slots {
		if st.cancel != nil {
			st.cancel()
		}
	}
	c.mu.Unlock()

	c.wg.Wait()
	close(c.results)
}
