package tileview

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"
)

// stubFetch is a controllable FetchFunc: it reports every started fetch on
// a channel and blocks until released.
type stubFetch struct {
	started chan tileID
	release chan struct{}
	err     error

	mu    sync.Mutex
	count int
}

func newStubFetch() *stubFetch {
	return &stubFetch{
		started: make(chan tileID, 64),
		release: make(chan struct{}, 64),
	}
}

func (s *stubFetch) fetch(_ context.Context, level, tile int) (image.Image, error) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.started <- tileID{level: level, tile: tile}
	<-s.release
	if s.err != nil {
		return nil, s.err
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (s *stubFetch) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// waitStarted reads one started fetch or fails after a timeout.
func waitStarted(t *testing.T, s *stubFetch) tileID {
	t.Helper()
	select {
	case id := <-s.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch started")
		return tileID{}
	}
}

// expectNoStart asserts that no fetch starts within a short window.
func expectNoStart(t *testing.T, s *stubFetch) {
	t.Helper()
	select {
	case id := <-s.started:
		t.Fatalf("unexpected fetch started: %+v", id)
	case <-time.After(50 * time.Millisecond):
	}
}

// drainAll ticks Drain until n completions have been applied.
func drainAll(t *testing.T, l *Loader, n int) []tileID {
	t.Helper()
	var got []tileID
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < n {
		l.Drain(func(level, tile int, _ image.Image) {
			got = append(got, tileID{level: level, tile: tile})
		})
		if time.Now().After(deadline) {
			t.Fatalf("drained %d of %d completions", len(got), n)
		}
		time.Sleep(time.Millisecond)
	}
	return got
}

func TestLoaderRequestIdempotent(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 2)
	defer l.Close()

	if !l.Request(2, 7) {
		t.Error("first request not accepted")
	}
	if l.Request(2, 7) {
		t.Error("duplicate request accepted while unresolved")
	}
	waitStarted(t, s)
	if l.Request(2, 7) {
		t.Error("duplicate request accepted while in flight")
	}

	s.release <- struct{}{}
	got := drainAll(t, l, 1)
	if got[0] != (tileID{level: 2, tile: 7}) {
		t.Errorf("applied %+v, want level 2 tile 7", got[0])
	}
	if s.calls() != 1 {
		t.Errorf("fetch called %d times, want 1", s.calls())
	}
}

func TestLoaderConcurrencyLimit(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 2)
	defer l.Close()

	for tile := 1; tile <= 5; tile++ {
		l.Request(1, tile)
	}
	waitStarted(t, s)
	waitStarted(t, s)
	expectNoStart(t, s) // third fetch must wait for capacity

	s.release <- struct{}{}
	waitStarted(t, s) // completion frees a slot

	for i := 0; i < 4; i++ {
		s.release <- struct{}{}
	}
	drainAll(t, l, 5)
	if s.calls() != 5 {
		t.Errorf("fetch called %d times, want 5", s.calls())
	}
}

func TestLoaderErrorAbsorbed(t *testing.T) {
	s := newStubFetch()
	s.err = errors.New("boom")
	l := NewLoader(s.fetch, 1)
	defer l.Close()

	l.Request(1, 1)
	waitStarted(t, s)
	s.release <- struct{}{}

	applied := 0
	deadline := time.Now().Add(2 * time.Second)
	for l.Outstanding() > 0 {
		l.Drain(func(int, int, image.Image) { applied++ })
		if time.Now().After(deadline) {
			t.Fatal("request never resolved")
		}
		time.Sleep(time.Millisecond)
	}
	l.Drain(func(int, int, image.Image) { applied++ })
	if applied != 0 {
		t.Errorf("apply called %d times for a failed fetch, want 0", applied)
	}

	// The tile stays missing and may be requested again.
	if !l.Request(1, 1) {
		t.Error("re-request after failure not accepted")
	}
}

func TestLoaderCancelHidden(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 1)
	defer l.Close()

	for tile := 1; tile <= 6; tile++ {
		l.Request(3, tile)
	}
	first := waitStarted(t, s) // tile 1 in flight, 2..6 queued

	l.CancelHidden(3, map[int]bool{2: true, 5: true})

	// In flight plus the two visible queued entries survive.
	if got := l.Outstanding(); got != 3 {
		t.Errorf("Outstanding = %d, want 3", got)
	}

	for i := 0; i < 3; i++ {
		s.release <- struct{}{}
	}
	got := drainAll(t, l, 3)
	want := map[tileID]bool{first: true, {level: 3, tile: 2}: true, {level: 3, tile: 5}: true}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected completion %+v", id)
		}
	}
}

func TestLoaderCancelAllKeepsInFlight(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 1)
	defer l.Close()

	for tile := 1; tile <= 4; tile++ {
		l.Request(2, tile)
	}
	waitStarted(t, s)

	l.CancelAll(true)
	if got := l.Outstanding(); got != 1 {
		t.Errorf("Outstanding = %d, want 1 (in-flight survives)", got)
	}

	// With the limit enforced, nothing new may start until the in-flight
	// fetch completes.
	l.Request(3, 1)
	expectNoStart(t, s)

	s.release <- struct{}{}
	waitStarted(t, s)
	s.release <- struct{}{}
	drainAll(t, l, 2)
}

func TestLoaderCancelAllResetsActiveCount(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 1)
	defer l.Close()

	l.Request(2, 1)
	waitStarted(t, s)

	// enforceLimit=false: the next level's fetch starts immediately even
	// though the old one is still in flight.
	l.CancelAll(false)
	l.Request(3, 1)
	waitStarted(t, s)

	s.release <- struct{}{}
	s.release <- struct{}{}
	drainAll(t, l, 2)
}

func TestLoaderProgressLatch(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 1)
	defer l.Close()

	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	if l.ShowProgress() {
		t.Error("ShowProgress true with no requests")
	}

	l.Request(1, 1)
	if l.ShowProgress() {
		t.Error("ShowProgress true immediately after request")
	}

	now = now.Add(DefaultProgressDelay / 2)
	if l.ShowProgress() {
		t.Error("ShowProgress true before the delay elapsed")
	}

	now = now.Add(DefaultProgressDelay)
	if !l.ShowProgress() {
		t.Error("ShowProgress false after the delay elapsed")
	}

	waitStarted(t, s)
	s.release <- struct{}{}
	drainAll(t, l, 1)
	if l.ShowProgress() {
		t.Error("ShowProgress true after the batch drained")
	}
}

func TestLoaderProgressFraction(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 1)
	defer l.Close()

	if got := l.Progress(); got != 1 {
		t.Errorf("idle Progress = %g, want 1", got)
	}

	for tile := 1; tile <= 4; tile++ {
		l.Request(1, tile)
	}
	if got := l.Progress(); got != 0 {
		t.Errorf("initial Progress = %g, want 0", got)
	}

	waitStarted(t, s)
	s.release <- struct{}{}
	drainAll(t, l, 1)
	waitStarted(t, s)
	if got := l.Progress(); got != 0.25 {
		t.Errorf("Progress after 1/4 = %g, want 0.25", got)
	}

	for i := 0; i < 3; i++ {
		s.release <- struct{}{}
	}
	drainAll(t, l, 3)
	if got := l.Progress(); got != 1 {
		t.Errorf("drained Progress = %g, want 1", got)
	}
}

func TestLoaderCloseStopsDispatch(t *testing.T) {
	s := newStubFetch()
	l := NewLoader(s.fetch, 1)

	l.Request(1, 1)
	waitStarted(t, s)
	l.Close()

	if l.Request(1, 2) {
		t.Error("request accepted after Close")
	}
	s.release <- struct{}{}
	// The in-flight completion is discarded; Drain applies nothing.
	time.Sleep(20 * time.Millisecond)
	n := l.Drain(func(int, int, image.Image) {})
	if n != 0 {
		t.Errorf("Drain applied %d completions after Close, want 0", n)
	}
}
