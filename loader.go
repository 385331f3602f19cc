package tileview

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"
)

// DefaultFetchLimit is the default number of tile fetches in flight.
const DefaultFetchLimit = 2

// DefaultProgressDelay is how long a fetch must stay outstanding before
// ShowProgress trips. Cache-hit-fast responses finish inside this window,
// so the host's progress indicator never flickers for them.
const DefaultProgressDelay = 500 * time.Millisecond

// FetchFunc fetches the image of one tile. Implementations are called from
// worker goroutines and must be safe for concurrent use.
type FetchFunc func(ctx context.Context, level, tile int) (image.Image, error)

// tileID identifies a tile within the loader's bookkeeping.
type tileID struct {
	level int
	tile  int
}

// fetchResult is a completed fetch, delivered to Drain.
type fetchResult struct {
	id  tileID
	gen uint64
	img image.Image
	err error
}

// Loader is a bounded-concurrency tile fetch scheduler.
//
// Requests are queued FIFO and dispatched to worker goroutines while the
// in-flight count stays below the limit. Completions are buffered and
// applied on the caller's goroutine via Drain, so everything downstream of
// the loader runs single-threaded.
//
// Cancellation is cooperative: it removes queued entries and prevents new
// dispatch, but an already-dispatched fetch always runs to completion (its
// result is still cached — the tile geometry does not change within a
// session, so a late tile is never wrong, only possibly unneeded).
type Loader struct {
	fetch FetchFunc
	limit int
	delay time.Duration
	now   func() time.Time // injectable clock for tests

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	queue     []tileID
	pending   map[tileID]struct{} // queued or in flight
	inflight  map[tileID]struct{}
	active    int
	gen       uint64 // bumped when CancelAll resets the active count
	requested int    // requests in the current batch
	completed int    // completions in the current batch
	busySince time.Time
	closed    bool

	results chan fetchResult
}

// NewLoader creates a loader that fetches tiles through fetch, keeping at
// most limit fetches in flight. A limit below 1 means DefaultFetchLimit.
func NewLoader(fetch FetchFunc, limit int) *Loader {
	if limit < 1 {
		limit = DefaultFetchLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		fetch:    fetch,
		limit:    limit,
		delay:    DefaultProgressDelay,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[tileID]struct{}),
		inflight: make(map[tileID]struct{}),
		results:  make(chan fetchResult, 256),
	}
}

// Request queues one tile for fetching. It is idempotent: a tile that is
// already queued or in flight is not queued again, and the caller is
// expected to skip tiles that are already cached. Returns true if the
// request was accepted.
func (l *Loader) Request(level, tile int) bool {
	id := tileID{level: level, tile: tile}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	if _, ok := l.pending[id]; ok {
		return false
	}
	if len(l.pending) == 0 {
		l.busySince = l.now()
	}
	l.pending[id] = struct{}{}
	l.queue = append(l.queue, id)
	l.requested++
	l.dispatchLocked()
	return true
}

// dispatchLocked starts queued fetches while capacity remains.
// Callers must hold l.mu.
func (l *Loader) dispatchLocked() {
	for l.active < l.limit && len(l.queue) > 0 {
		id := l.queue[0]
		l.queue = l.queue[1:]
		l.inflight[id] = struct{}{}
		l.active++
		gen := l.gen
		Logger().Debug("tileview: dispatching tile fetch",
			slog.Int("level", id.level), slog.Int("tile", id.tile),
			slog.Int("active", l.active))
		go l.run(id, gen)
	}
}

// run executes one fetch on a worker goroutine.
func (l *Loader) run(id tileID, gen uint64) {
	img, err := l.fetch(l.ctx, id.level, id.tile)

	l.mu.Lock()
	delete(l.inflight, id)
	delete(l.pending, id)
	l.completed++
	if gen == l.gen {
		l.active--
	}
	closed := l.closed
	l.dispatchLocked()
	l.mu.Unlock()

	if closed {
		return
	}
	l.results <- fetchResult{id: id, gen: gen, img: img, err: err}
}

// Drain applies buffered completions on the caller's goroutine. Successful
// fetches are passed to apply; failures are logged and absorbed — the tile
// simply stays missing, and the next paint cycle re-requests it if it is
// still visible. Returns the number of completions applied.
func (l *Loader) Drain(apply func(level, tile int, img image.Image)) int {
	n := 0
	for {
		select {
		case r := <-l.results:
			n++
			if r.err != nil {
				Logger().Warn("tileview: tile fetch failed",
					slog.Int("level", r.id.level), slog.Int("tile", r.id.tile),
					slog.Any("error", r.err))
				continue
			}
			apply(r.id.level, r.id.tile, r.img)
		default:
			l.mu.Lock()
			if len(l.pending) == 0 {
				// Batch drained to zero: reset progress accounting.
				l.requested = 0
				l.completed = 0
				l.busySince = time.Time{}
			}
			l.mu.Unlock()
			return n
		}
	}
}

// CancelHidden removes queued requests for tiles that are not in the
// visible set at the given zoom level. In-flight fetches are untouched.
// Called after a zoom or pan settles, so tiles that scrolled out of view
// are not fetched.
func (l *Loader) CancelHidden(level int, visible map[int]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.queue[:0]
	for _, id := range l.queue {
		if id.level == level && visible[id.tile] {
			kept = append(kept, id)
			continue
		}
		delete(l.pending, id)
		l.requested--
	}
	l.queue = kept
}

// CancelAll clears the queue outright. In-flight fetches are deliberately
// left to complete: aborting a transfer mid-flight buys little and their
// results are still cacheable.
//
// When enforceLimit is false the active count is reset to zero, so fetches
// for the next zoom level start immediately even while old ones are still
// completing — trading a possible momentary limit overrun for
// responsiveness. With enforceLimit true, new dispatch waits for the old
// fetches to drain below the limit.
func (l *Loader) CancelAll(enforceLimit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range l.queue {
		delete(l.pending, id)
		l.requested--
	}
	l.queue = nil
	if !enforceLimit {
		l.active = 0
		l.gen++
	}
}

// Outstanding returns the number of requests queued or in flight.
func (l *Loader) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Progress returns the completed fraction of the current request batch in
// [0, 1]. A drained loader reports 1.
func (l *Loader) Progress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.requested <= 0 {
		return 1
	}
	f := float64(l.completed) / float64(l.requested)
	if f > 1 {
		f = 1
	}
	return f
}

// ShowProgress reports whether a request has been outstanding for longer
// than the progress delay. Hosts use this to gate their loading indicator.
func (l *Loader) ShowProgress() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0 && !l.busySince.IsZero() && l.now().Sub(l.busySince) >= l.delay
}

// Close cancels the loader's context, discards queued requests and stops
// accepting new ones. Safe to call more than once.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
	l.cancel()
}
