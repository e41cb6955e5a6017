package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeFetcher struct {
	mu     sync.Mutex
	status Status
	err    error
	calls  int
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, correlationID string) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.status, f.err
}

func (f *fakeFetcher) set(s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
	f.err = nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFeed struct {
	ch     chan Status
	mu     sync.Mutex
	closed bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan Status, 4)}
}

func (f *fakeFeed) Changes() <-chan Status { return f.ch }

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFeed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// drain reads updates until the watcher closes the channel and returns the
// last delivered status.
func drain(t *testing.T, w *Watcher) Status {
	t.Helper()
	var last Status
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-w.Updates():
			if !ok {
				return last
			}
			last = s
		case <-timeout:
			t.Fatal("watcher did not stop in time")
		}
	}
}

func TestWatcherPollsUntilTerminal(t *testing.T) {
	fetcher := &fakeFetcher{status: StatusPending}
	w := NewWatcher(fetcher, nil, 5*time.Millisecond)
	w.Start(context.Background(), "ws_CO_1")

	waitFor(t, time.Second, func() bool { return fetcher.count() >= 3 })

	fetcher.set(StatusCompleted)
	if last := drain(t, w); last != StatusCompleted {
		t.Fatalf("final status = %s, want %s", last, StatusCompleted)
	}

	// polling must stop once terminal
	settled := fetcher.count()
	time.Sleep(30 * time.Millisecond)
	if fetcher.count() != settled {
		t.Errorf("fetch count advanced after terminal status: %d -> %d", settled, fetcher.count())
	}
}

func TestWatcherFeedWinsOverPolling(t *testing.T) {
	fetcher := &fakeFetcher{status: StatusPending}
	feed := newFakeFeed()
	w := NewWatcher(fetcher, feed, time.Minute) // poll effectively disabled
	w.Start(context.Background(), "ws_CO_2")

	waitFor(t, time.Second, func() bool { return w.Current() == StatusPending })

	feed.ch <- StatusCompleted
	if last := drain(t, w); last != StatusCompleted {
		t.Fatalf("final status = %s, want %s", last, StatusCompleted)
	}
	if w.Current() != StatusCompleted {
		t.Errorf("Current() = %s, want %s", w.Current(), StatusCompleted)
	}
	if !feed.isClosed() {
		t.Error("feed not closed after watcher stopped")
	}
}

func TestWatcherStalePendingDoesNotRegress(t *testing.T) {
	// the fetcher keeps answering pending while the feed reports completion;
	// the loser's reads must not move the state backwards
	fetcher := &fakeFetcher{status: StatusPending}
	feed := newFakeFeed()
	w := NewWatcher(fetcher, feed, 2*time.Millisecond)
	w.Start(context.Background(), "ws_CO_3")

	waitFor(t, time.Second, func() bool { return fetcher.count() >= 2 })
	feed.ch <- StatusCompleted

	if last := drain(t, w); last != StatusCompleted {
		t.Fatalf("final status = %s, want %s", last, StatusCompleted)
	}
	if w.Current() != StatusCompleted {
		t.Errorf("stale pending overwrote terminal status: %s", w.Current())
	}
}

func TestWatcherStopClearsPolling(t *testing.T) {
	fetcher := &fakeFetcher{status: StatusPending}
	feed := newFakeFeed()
	w := NewWatcher(fetcher, feed, 5*time.Millisecond)
	w.Start(context.Background(), "ws_CO_4")

	waitFor(t, time.Second, func() bool { return fetcher.count() >= 1 })
	w.Stop()

	settled := fetcher.count()
	time.Sleep(30 * time.Millisecond)
	if fetcher.count() != settled {
		t.Errorf("fetch count advanced after Stop: %d -> %d", settled, fetcher.count())
	}
	if !feed.isClosed() {
		t.Error("feed not closed after Stop")
	}
	if _, ok := <-w.Updates(); ok {
		// drain any buffered updates; channel must eventually be closed
		for range w.Updates() {
		}
	}
}

func TestWatcherUnknownRowKeepsLoading(t *testing.T) {
	// status queries for a row that does not exist yet report unknown; the
	// watcher stays in loading and keeps polling instead of crashing
	fetcher := &fakeFetcher{status: StatusUnknown}
	w := NewWatcher(fetcher, nil, 3*time.Millisecond)
	w.Start(context.Background(), "ws_CO_5")

	waitFor(t, time.Second, func() bool { return fetcher.count() >= 3 })
	if w.Current() != StatusLoading {
		t.Fatalf("Current() = %s, want %s while no row exists", w.Current(), StatusLoading)
	}

	fetcher.set(StatusPending)
	waitFor(t, time.Second, func() bool { return w.Current() == StatusPending })

	fetcher.set(StatusFailed)
	if last := drain(t, w); last != StatusFailed {
		t.Fatalf("final status = %s, want %s", last, StatusFailed)
	}
}

func TestWatcherFetchErrorIsTransient(t *testing.T) {
	fetcher := &fakeFetcher{status: StatusPending, err: errors.New("network down")}
	w := NewWatcher(fetcher, nil, 3*time.Millisecond)
	w.Start(context.Background(), "ws_CO_6")

	waitFor(t, time.Second, func() bool { return fetcher.count() >= 2 })
	if w.Current() != StatusLoading {
		t.Fatalf("Current() = %s, want %s while fetches fail", w.Current(), StatusLoading)
	}

	fetcher.set(StatusCompleted)
	if last := drain(t, w); last != StatusCompleted {
		t.Fatalf("final status = %s, want %s after recovery", last, StatusCompleted)
	}
}

func TestWatcherRefreshForcesImmediateFetch(t *testing.T) {
	fetcher := &fakeFetcher{status: StatusPending}
	w := NewWatcher(fetcher, nil, time.Minute)
	w.Start(context.Background(), "ws_CO_7")

	waitFor(t, time.Second, func() bool { return fetcher.count() == 1 })

	w.Refresh()
	waitFor(t, time.Second, func() bool { return fetcher.count() == 2 })

	fetcher.set(StatusCompleted)
	w.Refresh()
	if last := drain(t, w); last != StatusCompleted {
		t.Fatalf("final status = %s, want %s", last, StatusCompleted)
	}
}
