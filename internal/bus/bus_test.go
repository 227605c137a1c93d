package bus_test

import (
	"testing"
	"time"

	"github.com/suziejprince/taiko/internal/bus"
)

func TestPublish_DeliversToMatchingListener(t *testing.T) {
	b := bus.New()
	ch, sub := b.Subscribe(bus.KindLoadEventFired)
	defer sub.Release()

	b.Publish(bus.Event{Kind: bus.KindLoadEventFired})
	b.Publish(bus.Event{Kind: bus.KindNetworkIdle}) // should not be delivered

	select {
	case ev := <-ch:
		if ev.Kind != bus.KindLoadEventFired {
			t.Errorf("Kind = %v, want loadEventFired", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event: %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribe_NoKindsMeansEverything(t *testing.T) {
	b := bus.New()
	ch, sub := b.Subscribe()
	defer sub.Release()

	b.Publish(bus.Event{Kind: bus.KindFirstPaint})

	select {
	case ev := <-ch:
		if ev.Kind != bus.KindFirstPaint {
			t.Errorf("Kind = %v, want firstPaint", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestRelease_StopsDeliveryAndIsIdempotent(t *testing.T) {
	b := bus.New()
	ch, sub := b.Subscribe(bus.KindNetworkIdle)

	sub.Release()
	sub.Release() // must not panic

	b.Publish(bus.Event{Kind: bus.KindNetworkIdle})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed, not delivering")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel was never closed")
	}

	if got := b.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() = %d, want 0", got)
	}
}

func TestListenerCount_TracksLiveSubscriptions(t *testing.T) {
	b := bus.New()
	if got := b.ListenerCount(); got != 0 {
		t.Fatalf("ListenerCount() = %d, want 0", got)
	}

	_, sub1 := b.Subscribe(bus.KindTargetCreated)
	_, sub2 := b.Subscribe(bus.KindTargetNavigated)
	if got := b.ListenerCount(); got != 2 {
		t.Fatalf("ListenerCount() = %d, want 2", got)
	}

	sub1.Release()
	if got := b.ListenerCount(); got != 1 {
		t.Fatalf("ListenerCount() = %d, want 1", got)
	}
	sub2.Release()
	if got := b.ListenerCount(); got != 0 {
		t.Fatalf("ListenerCount() = %d, want 0", got)
	}
}

func TestPublish_NeverBlocksOnFullListener(t *testing.T) {
	b := bus.New()
	_, sub := b.Subscribe(bus.KindXHREvent)
	defer sub.Release()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(bus.Event{Kind: bus.KindXHREvent})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full listener channel")
	}
}
