package browser

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/config"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"example.com", "http://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com", "https://example.com"},
		{"file:///tmp/index.html", "file:///tmp/index.html"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeURL(c.in); got != c.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// fakeBrowser speaks just enough of the debugging-port HTTP surface
// (/json/version) plus the CDP wire format over WebSocket to exercise
// Session.Attach/CloseTab/Reconnect without a real Chromium process.
// Grounded on internal/cdpwire/client_test.go and
// internal/domains/domains_test.go's fakeServer.
type fakeBrowser struct {
	upgrader websocket.Upgrader
	srv      *httptest.Server

	versionFailures int32 // requests to /json/version that should fail, decremented per hit
	targets         atomic.Value
}

func newFakeBrowser(t *testing.T) *fakeBrowser {
	t.Helper()
	fb := &fakeBrowser{}
	fb.targets.Store([]map[string]any{
		{"targetId": "PAGE-1", "type": "page", "title": "", "url": "about:blank", "attached": true},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&fb.versionFailures, -1) >= 0 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"webSocketDebuggerUrl": "ws://" + r.Host + "/ws",
		})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := fb.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go fb.serve(conn)
	})
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBrowser) serve(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var req map[string]any
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		result := fb.respond(req["method"].(string))
		_ = conn.WriteJSON(map[string]any{"id": req["id"], "result": result})
	}
}

func (fb *fakeBrowser) respond(method string) any {
	switch method {
	case "Target.createTarget":
		return map[string]any{"targetId": "PAGE-1"}
	case "Target.attachToTarget":
		return map[string]any{"sessionId": "SESSION-1"}
	case "Target.getTargets":
		return map[string]any{"targetInfos": fb.targets.Load()}
	case "DOM.getDocument":
		return map[string]any{"root": map[string]any{"nodeId": 1}}
	default:
		return map[string]any{}
	}
}

func (fb *fakeBrowser) setTargets(pages []map[string]any) { fb.targets.Store(pages) }

// hostPort splits fb's httptest server address into the host/port pair
// Session.cfg/inst expect separately (DiscoverWebSocketURL rebuilds the
// /json/version URL from them rather than taking a base URL).
func (fb *fakeBrowser) hostPort(t *testing.T) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(fb.srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("splitting fake server address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing fake server port: %v", err)
	}
	return host, port
}

func newTestSession(t *testing.T, fb *fakeBrowser) *Session {
	t.Helper()
	host, port := fb.hostPort(t)
	return &Session{
		state:  StateUninitialized,
		cfg:    config.Config{Host: host},
		logger: zap.NewNop(),
		bus:    bus.New(),
		inst:   &instance{port: port},
	}
}

func TestSession_Attach_EnablesDomainsAndFetchesRoot(t *testing.T) {
	fb := newFakeBrowser(t)
	s := newTestSession(t, fb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Attach(ctx, ""); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if s.State() != StateAttached {
		t.Errorf("State() = %v, want %v", s.State(), StateAttached)
	}
	if s.RootNodeID() != 1 {
		t.Errorf("RootNodeID() = %d, want 1", s.RootNodeID())
	}
}

func TestSession_CloseTab_LastTabClosesBrowser(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.setTargets([]map[string]any{
		{"targetId": "PAGE-1", "type": "page", "title": "", "url": "about:blank", "attached": true},
	})
	s := newTestSession(t, fb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Attach(ctx, ""); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	closedBrowser, err := s.CloseTab(ctx, "")
	if err != nil {
		t.Fatalf("CloseTab: %v", err)
	}
	if !closedBrowser {
		t.Error("CloseTab on the last remaining tab should report closedBrowser = true")
	}
	if s.State() != StateClosed {
		t.Errorf("State() = %v, want %v after closing the last tab", s.State(), StateClosed)
	}
}

func TestSession_CloseTab_OtherTabsLeftOpen(t *testing.T) {
	fb := newFakeBrowser(t)
	fb.setTargets([]map[string]any{
		{"targetId": "PAGE-1", "type": "page", "title": "", "url": "about:blank", "attached": true},
		{"targetId": "PAGE-2", "type": "page", "title": "", "url": "https://example.com", "attached": true},
	})
	s := newTestSession(t, fb)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Attach(ctx, "PAGE-1"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	closedBrowser, err := s.CloseTab(ctx, "about:blank")
	if err != nil {
		t.Fatalf("CloseTab: %v", err)
	}
	if closedBrowser {
		t.Error("CloseTab with another tab remaining should report closedBrowser = false")
	}
	if s.State() != StateAttached {
		t.Errorf("State() = %v, want %v, browser should stay open", s.State(), StateAttached)
	}
}

func TestSession_Reconnect_RetriesUntilSuccess(t *testing.T) {
	fb := newFakeBrowser(t)
	atomic.StoreInt32(&fb.versionFailures, 1) // first /json/version hit fails, second succeeds
	s := newTestSession(t, fb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("Reconnect returned after %s, want at least one 1s retry wait", elapsed)
	}
	if s.State() != StateAttached {
		t.Errorf("State() = %v, want %v", s.State(), StateAttached)
	}
}
