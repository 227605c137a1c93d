package recorder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suziejprince/taiko/internal/cdpwire"
	"github.com/suziejprince/taiko/internal/domains"
)

type fakeServer struct {
	srv    *httptest.Server
	connCh chan *websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
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

func TestRecorder_BuildsEntryFromRequestAndResponse(t *testing.T) {
	fs := newFakeServer(t)
	c := dial(t, fs)
	h := domains.NewHandles(c, "SESSION-1")

	r := Start(h.Network)

	conn := <-fs.connCh
	_ = conn.WriteJSON(map[string]any{
		"sessionId": "SESSION-1",
		"method":    "Network.requestWillBeSent",
		"params": map[string]any{
			"requestId": "REQ-1",
			"timestamp": 1.0,
			"request":   map[string]any{"url": "https://example.com/a", "method": "GET"},
		},
	})
	_ = conn.WriteJSON(map[string]any{
		"sessionId": "SESSION-1",
		"method":    "Network.responseReceived",
		"params": map[string]any{
			"requestId": "REQ-1",
			"response":  map[string]any{"url": "https://example.com/a", "status": 200, "mimeType": "text/html"},
		},
	})
	_ = conn.WriteJSON(map[string]any{
		"sessionId": "SESSION-1",
		"method":    "Network.loadingFinished",
		"params":    map[string]any{"requestId": "REQ-1", "timestamp": 2.0},
	})

	time.Sleep(50 * time.Millisecond)
	log := r.Stop()

	if len(log.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(log.Entries))
	}
	entry := log.Entries[0]
	if entry.Request.URL != "https://example.com/a" {
		t.Errorf("Request.URL = %q", entry.Request.URL)
	}
	if entry.Response.Status != 200 {
		t.Errorf("Response.Status = %d, want 200", entry.Response.Status)
	}
}
