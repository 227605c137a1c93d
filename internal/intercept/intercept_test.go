package intercept

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
)

type fakeServer struct {
	srv    *httptest.Server
	connCh chan *websocket.Conn
}

func newFakeServer(t *testing.T, onRequest func(method string, params map[string]any)) *fakeServer {
	upgrader := websocket.Upgrader{}
	fs := &fakeServer{connCh: make(chan *websocket.Conn, 1)}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.connCh <- c
		for {
			var req map[string]any
			if err := c.ReadJSON(&req); err != nil {
				return
			}
			method, _ := req["method"].(string)
			params, _ := req["params"].(map[string]any)
			if onRequest != nil {
				onRequest(method, params)
			}
			_ = c.WriteJSON(map[string]any{"id": req["id"], "result": map[string]any{}})
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) wsURL() string { return "ws" + fs.srv.URL[len("http"):] }

func dial(t *testing.T, fs *fakeServer) *cdpwire.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := cdpwire.Dial(ctx, fs.wsURL())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRegistry_DispatchesMatchingDialogHandler(t *testing.T) {
	fs := newFakeServer(t, nil)
	c := dial(t, fs)
	h := domains.NewHandles(c, "SESSION-1")
	b := bus.New()
	r := New(b, h.Fetch)

	received := make(chan Dialog, 1)
	r.OnDialog("confirm", "Are you sure?", func(ctx context.Context, d Dialog) {
		received <- d
	})

	b.Publish(bus.Event{Kind: bus.KindJavascriptDialog, Payload: bus.DialogPayload{
		Type:    "confirm",
		Message: "Are you sure?",
		Accept:  func(string) error { return nil },
		Dismiss: func() error { return nil },
	}})

	select {
	case d := <-received:
		if d.Message != "Are you sure?" {
			t.Errorf("Message = %q, want %q", d.Message, "Are you sure?")
		}
	case <-time.After(time.Second):
		t.Fatal("dialog handler was not invoked")
	}
}

func TestRegistry_FallsBackToWildcardMessageHandler(t *testing.T) {
	fs := newFakeServer(t, nil)
	c := dial(t, fs)
	h := domains.NewHandles(c, "SESSION-1")
	b := bus.New()
	r := New(b, h.Fetch)

	received := make(chan Dialog, 1)
	r.OnDialog("alert", "", func(ctx context.Context, d Dialog) {
		received <- d
	})

	b.Publish(bus.Event{Kind: bus.KindJavascriptDialog, Payload: bus.DialogPayload{
		Type:    "alert",
		Message: "anything",
		Accept:  func(string) error { return nil },
		Dismiss: func() error { return nil },
	}})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("wildcard dialog handler was not invoked")
	}
}

func TestRegistry_BlockInterceptorFailsMatchingRequest(t *testing.T) {
	var gotMethod string
	var gotParams map[string]any
	done := make(chan struct{}, 1)
	fs := newFakeServer(t, func(method string, params map[string]any) {
		if method == "Fetch.failRequest" {
			gotMethod = method
			gotParams = params
			done <- struct{}{}
		}
	})
	c := dial(t, fs)
	h := domains.NewHandles(c, "SESSION-1")
	b := bus.New()
	r := New(b, h.Fetch)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.Intercept(ctx, Interceptor{URLPattern: "ads.example.com", Action: ActionBlock}); err != nil {
		t.Fatalf("Intercept: %v", err)
	}

	conn := <-fs.connCh

	// Simulate a Fetch.requestPaused event from the server for a matching URL.
	_ = conn.WriteJSON(map[string]any{
		"sessionId": "SESSION-1",
		"method":    "Fetch.requestPaused",
		"params": map[string]any{
			"requestId": "REQ-9",
			"request":   map[string]any{"url": "https://ads.example.com/pixel", "method": "GET"},
		},
	})

	select {
	case <-done:
		if gotMethod != "Fetch.failRequest" {
			t.Errorf("method = %q, want Fetch.failRequest", gotMethod)
		}
		if gotParams["requestId"] != "REQ-9" {
			t.Errorf("requestId = %v, want REQ-9", gotParams["requestId"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked request was not failed")
	}
}
