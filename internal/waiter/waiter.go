// Package waiter implements the Navigation Waiter described in spec.md
// §4.5: the oracle an action hands off to after dispatching input, which
// decides whether the page is "settling" by composing a dynamically
// arming set of Event Bus promises and blocking until they all resolve,
// or bailing out early if nothing armed at all.
//
// Grounded on tomyan-hubcap's internal/chrome/wait.go (WaitForNavigation,
// WaitForLoad, WaitForNetworkIdle), restructured from separate one-shot
// waits into a single promise-set composition that mirrors the dynamic
// arming rule this spec calls for.
package waiter

import (
	"context"
	"fmt"
	"time"

	"github.com/suziejprince/taiko/internal/bus"
)

// DefaultWaitForStart is how long Await waits for the promise set to
// become non-empty before concluding the action caused no navigation.
const DefaultWaitForStart = 500 * time.Millisecond

// DefaultTimeout bounds an ordinary action's navigation wait.
const DefaultTimeout = 15 * time.Second

// DefaultNavigationTimeout bounds goto/openTab, per spec.md §4.5.
const DefaultNavigationTimeout = 30 * time.Second

// TimeoutError is returned when the armed promise set does not resolve
// before the deadline. It names the elapsed budget per spec.md's error
// handling design (§7, NavigationTimeout).
type TimeoutError struct {
	Timeout time.Duration
	Pending []bus.Kind
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("waiter: navigation timed out after %s, still waiting on %v", e.Timeout, e.Pending)
}

// Config controls one Await call.
type Config struct {
	// WaitForStart is how long to wait for the promise set to become
	// non-empty when starting from an empty (reactive) arm set. Ignored
	// when Seed is non-empty, since the caller already knows navigation
	// will happen.
	WaitForStart time.Duration
	// Timeout bounds the whole wait once armed.
	Timeout time.Duration
	// Seed pre-arms these promises before any event is observed, used by
	// goto/openTab which know up front that navigation is happening.
	Seed []bus.Kind
	// RootIDReady, if set, must return true before Await succeeds, modeling
	// the "plus a root-id-available check" clause of spec.md §4.5 step 3.
	// Polled every 20ms once the armed set has otherwise resolved.
	RootIDReady func() bool
}

// DefaultConfig returns the defaults for a reactive (may-navigate) action.
func DefaultConfig() Config {
	return Config{WaitForStart: DefaultWaitForStart, Timeout: DefaultTimeout}
}

// NavigationConfig returns the defaults for an action that definitely
// navigates (goto, openTab): pre-armed, longer deadline.
func NavigationConfig() Config {
	return Config{
		Timeout: DefaultNavigationTimeout,
		Seed: []bus.Kind{
			bus.KindLoadEventFired,
			bus.KindFrameStoppedLoading,
			bus.KindDOMContentEventFired,
			bus.KindNetworkIdle,
		},
	}
}

// Await blocks until the dynamically-armed promise set resolves, or
// returns nil early if nothing ever armed within cfg.WaitForStart. It
// always releases its bus subscription before returning, satisfying the
// listener-hygiene invariant of spec.md §8 on every exit path.
func Await(ctx context.Context, b *bus.Bus, cfg Config) error {
	ch, sub := b.Subscribe()
	defer sub.Release()

	armed := make(map[bus.Kind]bool, len(cfg.Seed))
	for _, k := range cfg.Seed {
		armed[k] = true
	}
	resolved := make(map[bus.Kind]bool, len(cfg.Seed))

	start := time.Now()
	waitForStart := cfg.WaitForStart
	if waitForStart <= 0 {
		waitForStart = DefaultWaitForStart
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	startDeadline := time.NewTimer(waitForStart)
	defer startDeadline.Stop()

	// Phase 1: wait for the promise set to become non-empty, unless it
	// already is (pre-armed navigation actions skip this phase entirely).
	if len(armed) == 0 {
	armPhase:
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return nil
				}
				apply(ev, armed, resolved)
				if len(armed) > 0 {
					break armPhase
				}
			case <-startDeadline.C:
				return nil // nothing armed: the action caused no navigation
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	deadline := time.After(time.Until(start.Add(timeout)))
	pollRoot := time.NewTicker(20 * time.Millisecond)
	defer pollRoot.Stop()

	for {
		if allResolved(armed, resolved) && rootReady(cfg.RootIDReady) {
			return nil
		}
		select {
		case ev, ok := <-ch:
			if !ok {
				continue
			}
			apply(ev, armed, resolved)
		case <-pollRoot.C:
			// loop back around to re-check allResolved+rootReady
		case <-deadline:
			return &TimeoutError{Timeout: timeout, Pending: pendingKinds(armed, resolved)}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func rootReady(check func() bool) bool {
	if check == nil {
		return true
	}
	return check()
}

func allResolved(armed, resolved map[bus.Kind]bool) bool {
	for k := range armed {
		if !resolved[k] {
			return false
		}
	}
	return true
}

func pendingKinds(armed, resolved map[bus.Kind]bool) []bus.Kind {
	var pending []bus.Kind
	for k := range armed {
		if !resolved[k] {
			pending = append(pending, k)
		}
	}
	return pending
}

// apply implements the arming rule from spec.md §4.5: frameStartedLoading
// arms loadEventFired and frameStoppedLoading, targetCreated arms
// targetNavigated, xhrEvent arms networkIdle. Any event matching an
// already-armed promise resolves it.
func apply(ev bus.Event, armed, resolved map[bus.Kind]bool) {
	switch ev.Kind {
	case bus.KindFrameStartedLoading:
		armed[bus.KindLoadEventFired] = true
		armed[bus.KindFrameStoppedLoading] = true
	case bus.KindTargetCreated:
		armed[bus.KindTargetNavigated] = true
	case bus.KindXHREvent:
		armed[bus.KindNetworkIdle] = true
	}
	if armed[ev.Kind] {
		resolved[ev.Kind] = true
	}
}
