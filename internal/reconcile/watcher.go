package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Fetcher reads the current status of a transaction by correlation id.
// Implementations return StatusUnknown with a nil error when no row exists
// yet — the watcher keeps polling for the race where tracking starts before
// the initiation write has landed.
type Fetcher interface {
	FetchStatus(ctx context.Context, correlationID string) (Status, error)
}

// Feed is a push subscription delivering backend status changes for a single
// correlation id. Closing the channel ends the subscription.
type Feed interface {
	Changes() <-chan Status
	Close() error
}

// Watcher converges the status of one transaction from two uncoordinated
// sources: a fixed-interval poll and a push feed. Updates from both are
// folded through Merge, so a stale pending read can never overwrite an
// already observed terminal status. The watcher tears itself down the moment
// the merged status turns terminal.
type Watcher struct {
	fetcher  Fetcher
	feed     Feed
	interval time.Duration

	mu      sync.Mutex
	current Status

	updates chan Status
	refresh chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher creates a watcher. feed may be nil for a poll-only watcher.
func NewWatcher(fetcher Fetcher, feed Feed, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		fetcher:  fetcher,
		feed:     feed,
		interval: interval,
		current:  StatusUnknown,
		updates:  make(chan Status, 16),
		refresh:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins tracking the given correlation id. It returns immediately;
// progress is delivered on Updates.
func (w *Watcher) Start(ctx context.Context, correlationID string) {
	go w.run(ctx, correlationID)
}

// Updates delivers every forward movement of the merged status. The channel
// is closed once the watcher stops.
func (w *Watcher) Updates() <-chan Status {
	return w.updates
}

// Current returns the latest merged status.
func (w *Watcher) Current() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Refresh forces an immediate fetch, for use after returning from an
// external payment redirect. No-op once the watcher has stopped.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Stop cancels polling and the push subscription and waits for the watcher
// goroutine to exit. Safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Watcher) run(ctx context.Context, correlationID string) {
	defer close(w.done)
	defer close(w.updates)
	if w.feed != nil {
		defer w.feed.Close()
	}

	w.apply(StatusLoading)

	// immediate fetch on mount
	w.fetch(ctx, correlationID)
	if w.Current().Terminal() {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var changes <-chan Status
	if w.feed != nil {
		changes = w.feed.Changes()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-w.refresh:
			w.fetch(ctx, correlationID)
		case <-ticker.C:
			w.fetch(ctx, correlationID)
		case s, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			w.apply(s)
		}

		if w.Current().Terminal() {
			return
		}
	}
}

// fetch polls once. Fetch errors are transient by contract: log and let the
// next tick retry.
func (w *Watcher) fetch(ctx context.Context, correlationID string) {
	status, err := w.fetcher.FetchStatus(ctx, correlationID)
	if err != nil {
		slog.Warn("status fetch failed", "correlationId", correlationID, "error", err)
		return
	}
	w.apply(status)
}

func (w *Watcher) apply(observed Status) {
	w.mu.Lock()
	merged := Merge(w.current, observed)
	if merged == w.current {
		w.mu.Unlock()
		return
	}
	w.current = merged
	w.mu.Unlock()

	// drop the oldest update rather than block; run is the only sender
	select {
	case w.updates <- merged:
	default:
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- merged:
		default:
		}
	}
}
