package selector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/suziejprince/taiko/internal/cdpwire"
	"github.com/suziejprince/taiko/internal/domains"
)

func TestBuildQuery_Label(t *testing.T) {
	q, err := buildQuery(Label("Submit", false))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, `contains(@value, "Submit")`) {
		t.Errorf("query = %q, want a @value contains probe", q)
	}
}

func TestBuildQuery_Exact(t *testing.T) {
	q, err := buildQuery(Label("Submit", true))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, `normalize-space(string(.))="Submit"`) {
		t.Errorf("query = %q, want an exact text-match probe", q)
	}
}

func TestBuildQuery_Attrs(t *testing.T) {
	q, err := buildQuery(Attrs("div", map[string]string{"id": "panel"}))
	if err != nil {
		t.Fatal(err)
	}
	if q != `//div[@id="panel"]` {
		t.Errorf("query = %q, want //div[@id=\"panel\"]", q)
	}
}

func TestBuildQuery_ClassUsesContains(t *testing.T) {
	q, err := buildQuery(Attrs("div", map[string]string{"class": "card"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, `contains(@class, "card")`) {
		t.Errorf("query = %q, want a class contains predicate", q)
	}
}

func TestBuildQuery_XPathOrCssPassesThrough(t *testing.T) {
	q, err := buildQuery(XPathOrCss("//div[@id='x']"))
	if err != nil {
		t.Fatal(err)
	}
	if q != "//div[@id='x']" {
		t.Errorf("query = %q, want the raw expression unchanged", q)
	}
}

func TestBuildQuery_CheckBoxByLabel(t *testing.T) {
	q, err := buildQuery(Typed(ElementCheckBox, "Accept terms", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "input[@type='checkbox']") || !strings.Contains(q, "label") {
		t.Errorf("query = %q, want a checkbox input joined to a label", q)
	}
}

func TestBuildQuery_LinkByAttrs(t *testing.T) {
	q, err := buildQuery(Typed(ElementLink, "", map[string]string{"href": "/home"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "//a[") {
		t.Errorf("query = %q, want an <a> predicate", q)
	}
}

func TestXPathLiteral_HandlesEmbeddedQuotes(t *testing.T) {
	lit := xpathLiteral(`say "hi"`)
	if !strings.HasPrefix(lit, "'") {
		t.Errorf("xpathLiteral(%q) = %q, want single-quoted fallback", `say "hi"`, lit)
	}
}

// fakeServer dispatches CDP command requests to handler functions keyed
// by method, mirroring internal/domains' own fake-server test harness.
type fakeServer struct {
	srv *httptest.Server
}

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

func TestResolve_ReturnsVisibleMatchWithRectangle(t *testing.T) {
	fs := newFakeServer(t, map[string]func(map[string]any) any{
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
		"Runtime.callFunctionOn": func(map[string]any) any {
			return map[string]any{"result": map[string]any{"type": "boolean", "value": true}}
		},
		"DOM.getBoxModel": func(map[string]any) any {
			return map[string]any{"model": map[string]any{
				"border": []float64{10, 20, 110, 20, 110, 60, 10, 60},
				"width":  100, "height": 40,
			}}
		},
		"Runtime.releaseObject": func(map[string]any) any { return map[string]any{} },
	})

	c := dial(t, fs)
	h := domains.NewHandles(c, "SESSION-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	matches, err := Resolve(ctx, h.DOM, h.Runtime, 1, Label("Submit", false))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	if matches[0].NodeID != 7 {
		t.Errorf("NodeID = %d, want 7", matches[0].NodeID)
	}
	if matches[0].Rect.Right != 110 || matches[0].Rect.Bottom != 60 {
		t.Errorf("Rect = %+v, want Right=110 Bottom=60", matches[0].Rect)
	}
}

func TestResolve_NotFoundNamesSelectorDescription(t *testing.T) {
	fs := newFakeServer(t, map[string]func(map[string]any) any{
		"DOM.performSearch": func(map[string]any) any {
			return map[string]any{"searchId": "S1", "resultCount": 0}
		},
		"DOM.discardSearchResults": func(map[string]any) any { return map[string]any{} },
	})

	c := dial(t, fs)
	h := domains.NewHandles(c, "SESSION-1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sel := Label("Nowhere to be found", true)
	_, err := Resolve(ctx, h.DOM, h.Runtime, 1, sel)
	if err == nil {
		t.Fatal("expected a not-found error")
	}
	var notFound *NotFoundError
	if !errorsAsNotFound(err, &notFound) {
		t.Fatalf("err = %v, want *NotFoundError", err)
	}
	if notFound.Description != sel.Description {
		t.Errorf("Description = %q, want %q", notFound.Description, sel.Description)
	}
}

func errorsAsNotFound(err error, target **NotFoundError) bool {
	for err != nil {
		if nf, ok := err.(*NotFoundError); ok {
			*target = nf
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
