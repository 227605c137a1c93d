// Package netidle implements the in-flight request tracker described in
// spec.md §4.4 ("Network-Idle Tracker"): it holds the set of outstanding
// request ids and emits a networkIdle bus event once that set has been
// empty for a quiet window, re-arming the window on any new request.
//
// Grounded on tomyan-hubcap's internal/chrome/wait.go WaitForNetworkIdle,
// restructured from a one-shot blocking wait into a standing tracker that
// publishes onto the bus continuously, which is what lets multiple
// concurrent waiters (package waiter) observe the same idle signal.
package netidle

import (
	"sync"
	"time"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/domains"
)

// DefaultQuietWindow is the default debounce window from spec.md §4.4
// ("default 400-500ms"). 450ms splits that range.
const DefaultQuietWindow = 450 * time.Millisecond

// Tracker watches a Network domain adapter's request lifecycle and
// publishes bus.KindNetworkIdle once in-flight requests settle. The zero
// value is not usable; use New.
type Tracker struct {
	bus         *bus.Bus
	quietWindow time.Duration

	mu        sync.Mutex
	inFlight  map[string]bool
	timer     *time.Timer
	stopC     chan struct{}
	lifecycle domains.RequestLifecycle
	stopWire  func()
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithQuietWindow overrides DefaultQuietWindow.
func WithQuietWindow(d time.Duration) Option {
	return func(t *Tracker) { t.quietWindow = d }
}

// New starts tracking requests on network and publishing networkIdle
// events on b. Call Stop to release the underlying CDP subscriptions.
func New(b *bus.Bus, network *domains.Network, opts ...Option) *Tracker {
	t := &Tracker{
		bus:         b,
		quietWindow: DefaultQuietWindow,
		inFlight:    make(map[string]bool),
		stopC:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	lifecycle, stop := network.SubscribeRequestLifecycle()
	t.lifecycle = lifecycle
	t.stopWire = stop

	go t.run()
	return t
}

func (t *Tracker) run() {
	for {
		select {
		case id, ok := <-t.lifecycle.Started:
			if !ok {
				return
			}
			t.onStart(id)
		case id, ok := <-t.lifecycle.Finished:
			if !ok {
				return
			}
			t.onFinish(id)
		case <-t.stopC:
			return
		}
	}
}

func (t *Tracker) onStart(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight[id] = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) onFinish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, id)
	if len(t.inFlight) > 0 {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.quietWindow, t.fireIfStillEmpty)
}

func (t *Tracker) fireIfStillEmpty() {
	t.mu.Lock()
	empty := len(t.inFlight) == 0
	t.mu.Unlock()
	if empty {
		t.bus.Publish(bus.Event{Kind: bus.KindNetworkIdle})
	}
}

// InFlightCount reports the current number of outstanding requests,
// exposed for tests.
func (t *Tracker) InFlightCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inFlight)
}

// Stop releases the underlying CDP subscriptions and stops the debounce
// timer. Safe to call once.
func (t *Tracker) Stop() {
	close(t.stopC)
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	t.stopWire()
}
