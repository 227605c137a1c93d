package action

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/cdpwire"
	"github.com/suziejprince/taiko/internal/domains"
	"github.com/suziejprince/taiko/internal/selector"
)

type fakeServer struct{ srv *httptest.Server }

func newFakeServer(t *testing.T, handlers map[string]func(params map[string]any) any) *fakeServer {
	upgrader := websocket.Upgrader{}
	fs := &fakeServer{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			method, _ := req["method"].(string)
			params, _ := req["params"].(map[string]any)
			h, ok := handlers[method]
			if !ok {
				_ = conn.WriteJSON(map[string]any{"id": req["id"], "result": map[string]any{}})
				continue
			}
			_ = conn.WriteJSON(map[string]any{"id": req["id"], "result": h(params)})
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

// clickableHandlers wires up a single unoccluded candidate at node 7
// with a 100x40 box at (10,20).
func clickableHandlers() map[string]func(map[string]any) any {
	return map[string]func(map[string]any) any{
		"DOM.performSearch": func(map[string]any) any {
			return map[string]any{"searchId": "S1", "resultCount": 1}
		},
		"DOM.getSearchResults": func(map[string]any) any {
			return map[string]any{"nodeIds": []int{7}}
		},
		"DOM.discardSearchResults": func(map[string]any) any { return map[string]any{} },
		"DOM.resolveNode": func(map[string]any) any {
			return map[string]any{"object": map[string]any{"objectId": "OBJ-7"}}
		},
		"DOM.getBoxModel": func(map[string]any) any {
			return map[string]any{"model": map[string]any{
				"border": []float64{10, 20, 110, 20, 110, 60, 10, 60},
				"width":  100, "height": 40,
			}}
		},
		"DOM.scrollIntoViewIfNeeded": func(map[string]any) any { return map[string]any{} },
		"DOM.getAttributes":         func(map[string]any) any { return map[string]any{"attributes": []string{}} },
		"Runtime.releaseObject":     func(map[string]any) any { return map[string]any{} },
		"Runtime.callFunctionOn": func(params map[string]any) any {
			// visibility probe and occlusion probe both return true for
			// this single unambiguous candidate.
			return map[string]any{"result": map[string]any{"type": "boolean", "value": true}}
		},
		"Input.dispatchMouseEvent": func(map[string]any) any { return map[string]any{} },
	}
}

func newPipeline(t *testing.T, handlers map[string]func(map[string]any) any) (*Pipeline, *domains.Handles) {
	fs := newFakeServer(t, handlers)
	c := dial(t, fs)
	h := domains.NewHandles(c, "SESSION-1")
	return &Pipeline{
		DOM:        h.DOM,
		Runtime:    h.Runtime,
		Input:      h.Input,
		Overlay:    h.Overlay,
		Bus:        bus.New(),
		RootNodeID: func() int { return 1 },
		Config:     DefaultConfig(),
	}, h
}

func TestClick_DispatchesOnUnoccludedCandidate(t *testing.T) {
	p, _ := newPipeline(t, clickableHandlers())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p.Config.WaitForStart = 20 * time.Millisecond

	result, err := p.Click(ctx, selector.Label("Submit", false), ClickOptions{})
	if err != nil {
		t.Fatalf("Click: %v", err)
	}
	if result.Description == "" {
		t.Error("expected a non-empty description")
	}
}

func TestClick_FailsOnFileInput(t *testing.T) {
	handlers := clickableHandlers()
	handlers["DOM.getAttributes"] = func(map[string]any) any {
		return map[string]any{"attributes": []string{"type", "file"}}
	}
	p, _ := newPipeline(t, handlers)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Config.WaitForStart = 20 * time.Millisecond

	_, err := p.Click(ctx, selector.Label("Upload", false), ClickOptions{})
	if err != ErrUnsupportedFileClick {
		t.Fatalf("err = %v, want ErrUnsupportedFileClick", err)
	}
}

func TestClick_TooManyMatchesWhenNothingHitTestable(t *testing.T) {
	handlers := clickableHandlers()
	handlers["Runtime.callFunctionOn"] = func(params map[string]any) any {
		// The candidate passes the visibility probe but fails every
		// occlusion probe (the ones that call elementFromPoint).
		fn, _ := params["functionDeclaration"].(string)
		hit := !strings.Contains(fn, "elementFromPoint")
		return map[string]any{"result": map[string]any{"type": "boolean", "value": hit}}
	}
	p, _ := newPipeline(t, handlers)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Config.WaitForStart = 20 * time.Millisecond

	_, err := p.Click(ctx, selector.Label("Ghost", false), ClickOptions{})
	if err != ErrTooManyMatches {
		t.Fatalf("err = %v, want ErrTooManyMatches", err)
	}
}

func TestScroll_EvaluatesScrollBy(t *testing.T) {
	var gotExpression string
	handlers := map[string]func(map[string]any) any{
		"Runtime.evaluate": func(params map[string]any) any {
			gotExpression, _ = params["expression"].(string)
			return map[string]any{"result": map[string]any{"type": "undefined"}}
		},
	}
	p, _ := newPipeline(t, handlers)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := p.Scroll(ctx, ScrollDown, 200); err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if gotExpression == "" {
		t.Fatal("expected window.scrollBy to be evaluated")
	}
}
