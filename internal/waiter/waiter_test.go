package waiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/waiter"
)

func TestAwait_ReturnsImmediatelyWhenNothingArms(t *testing.T) {
	b := bus.New()
	cfg := waiter.Config{WaitForStart: 30 * time.Millisecond, Timeout: time.Second}

	start := time.Now()
	err := waiter.Await(context.Background(), b, cfg)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("elapsed = %s, want close to WaitForStart", elapsed)
	}
	if got := b.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() = %d, want 0 after Await returns", got)
	}
}

func TestAwait_ArmsAndResolvesOnFrameStartedLoading(t *testing.T) {
	b := bus.New()
	cfg := waiter.Config{WaitForStart: 200 * time.Millisecond, Timeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- waiter.Await(context.Background(), b, cfg) }()

	time.Sleep(20 * time.Millisecond)
	b.Publish(bus.Event{Kind: bus.KindFrameStartedLoading})
	time.Sleep(10 * time.Millisecond)
	b.Publish(bus.Event{Kind: bus.KindLoadEventFired})
	b.Publish(bus.Event{Kind: bus.KindFrameStoppedLoading})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Await: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Await did not return after armed promises resolved")
	}
}

func TestAwait_TimesOutWithPendingPromises(t *testing.T) {
	b := bus.New()
	cfg := waiter.Config{WaitForStart: 20 * time.Millisecond, Timeout: 60 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- waiter.Await(context.Background(), b, cfg) }()

	time.Sleep(5 * time.Millisecond)
	b.Publish(bus.Event{Kind: bus.KindFrameStartedLoading}) // arms, never resolves

	select {
	case err := <-done:
		var terr *waiter.TimeoutError
		if !asTimeoutError(err, &terr) {
			t.Fatalf("expected *waiter.TimeoutError, got %T: %v", err, err)
		}
	case <-time.After(time.Second):
		t.Fatal("Await never returned")
	}
}

func TestAwait_NavigationConfigIsPreArmed(t *testing.T) {
	b := bus.New()
	cfg := waiter.NavigationConfig()
	cfg.Timeout = 200 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- waiter.Await(context.Background(), b, cfg) }()

	time.Sleep(5 * time.Millisecond)
	b.Publish(bus.Event{Kind: bus.KindLoadEventFired})
	b.Publish(bus.Event{Kind: bus.KindFrameStoppedLoading})
	b.Publish(bus.Event{Kind: bus.KindDOMContentEventFired})
	b.Publish(bus.Event{Kind: bus.KindNetworkIdle})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Await: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Await did not resolve a pre-armed promise set")
	}
}

func TestAwait_WaitsForRootIDReady(t *testing.T) {
	b := bus.New()
	ready := false
	cfg := waiter.Config{WaitForStart: 200 * time.Millisecond, Timeout: time.Second, RootIDReady: func() bool { return ready }}

	done := make(chan error, 1)
	go func() { done <- waiter.Await(context.Background(), b, cfg) }()

	time.Sleep(10 * time.Millisecond)
	b.Publish(bus.Event{Kind: bus.KindFrameStartedLoading})
	b.Publish(bus.Event{Kind: bus.KindLoadEventFired})
	b.Publish(bus.Event{Kind: bus.KindFrameStoppedLoading})

	select {
	case <-done:
		t.Fatal("Await returned before root id was ready")
	case <-time.After(80 * time.Millisecond):
	}

	ready = true

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Await: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Await did not notice root id becoming ready")
	}
}

func asTimeoutError(err error, target **waiter.TimeoutError) bool {
	te, ok := err.(*waiter.TimeoutError)
	if ok {
		*target = te
	}
	return ok
}
