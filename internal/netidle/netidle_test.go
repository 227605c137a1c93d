package netidle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/cdpwire"
	"github.com/suziejprince/taiko/internal/domains"
	"github.com/suziejprince/taiko/internal/netidle"
)

type fakeServer struct {
	upgrader websocket.Upgrader
	srv      *httptest.Server
	connCh   chan *websocket.Conn
}

func newFakeServer() *fakeServer {
	fs := &fakeServer{connCh: make(chan *websocket.Conn, 1)}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.connCh <- conn
	}))
	return fs
}

func (fs *fakeServer) wsURL() string { return "ws" + fs.srv.URL[len("http"):] }
func (fs *fakeServer) Close()        { fs.srv.Close() }

func sendEvent(conn *websocket.Conn, method, requestID string) {
	_ = conn.WriteJSON(map[string]any{
		"sessionId": "SESSION-1",
		"method":    method,
		"params":    map[string]any{"requestId": requestID},
	})
}

func TestTracker_FiresNetworkIdleAfterQuietWindow(t *testing.T) {
	fs := newFakeServer()
	defer fs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := cdpwire.Dial(ctx, fs.wsURL())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	conn := <-fs.connCh

	h := domains.NewHandles(c, "SESSION-1")
	b := bus.New()
	tr := netidle.New(b, h.Network, netidle.WithQuietWindow(50*time.Millisecond))
	defer tr.Stop()

	idleCh, sub := b.Subscribe(bus.KindNetworkIdle)
	defer sub.Release()

	sendEvent(conn, "Network.requestWillBeSent", "REQ-1")
	time.Sleep(50 * time.Millisecond)
	if got := tr.InFlightCount(); got != 1 {
		t.Fatalf("InFlightCount = %d, want 1", got)
	}

	sendEvent(conn, "Network.loadingFinished", "REQ-1")

	select {
	case <-idleCh:
	case <-time.After(time.Second):
		t.Fatal("networkIdle never fired")
	}

	if got := tr.InFlightCount(); got != 0 {
		t.Errorf("InFlightCount = %d, want 0", got)
	}
}

func TestTracker_RearmsOnNewRequestDuringQuietWindow(t *testing.T) {
	fs := newFakeServer()
	defer fs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := cdpwire.Dial(ctx, fs.wsURL())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	conn := <-fs.connCh

	h := domains.NewHandles(c, "SESSION-1")
	b := bus.New()
	tr := netidle.New(b, h.Network, netidle.WithQuietWindow(80*time.Millisecond))
	defer tr.Stop()

	idleCh, sub := b.Subscribe(bus.KindNetworkIdle)
	defer sub.Release()

	sendEvent(conn, "Network.requestWillBeSent", "REQ-1")
	sendEvent(conn, "Network.loadingFinished", "REQ-1")

	time.Sleep(40 * time.Millisecond) // within the quiet window
	sendEvent(conn, "Network.requestWillBeSent", "REQ-2")

	select {
	case <-idleCh:
		t.Fatal("networkIdle fired despite a new in-flight request")
	case <-time.After(120 * time.Millisecond):
	}

	sendEvent(conn, "Network.loadingFinished", "REQ-2")

	select {
	case <-idleCh:
	case <-time.After(time.Second):
		t.Fatal("networkIdle never fired after the second request settled")
	}
}
