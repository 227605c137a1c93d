// Package intercept implements the Dialog & Interception Hooks
// component from spec.md §4.10: registering handlers for JS dialogs
// (alert/prompt/confirm/beforeunload) keyed by {type, message}, and
// registering URL-pattern network interceptors (block/mockResponse/
// redirectUrl/requestRewriter) that resolve paused requests via the CDP
// Fetch domain.
//
// tomyan-hubcap has neither dialog handling nor request interception
// (its Client is read-only against a live page), so this package is
// built directly from spec.md §3-4.10 using the internal/domains.Page
// dialog republishing and the internal/domains.Fetch adapter this
// module adds for exactly this purpose.
package intercept

import (
	"context"
	"strings"
	"sync"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/domains"
)

// DialogHandler runs when a matching JS dialog opens.
type DialogHandler func(ctx context.Context, dialog Dialog)

// Dialog is the accept()/dismiss() capability handed to a DialogHandler,
// per spec.md §4.10.
type Dialog struct {
	Type    string
	Message string
	Accept  func(promptText string) error
	Dismiss func() error
}

type dialogKey struct {
	dialogType string
	message    string
}

// InterceptAction discriminates an Interceptor's behavior, per spec.md
// §3's Interceptor record.
type InterceptAction int

const (
	ActionBlock InterceptAction = iota
	ActionMockResponse
	ActionRedirect
	ActionRewrite
)

// RequestHandle is the object a requestRewriter callback receives, per
// spec.md §4.10 point (iv).
type RequestHandle struct {
	URL     string
	Method  string
	Headers map[string]string

	fetch     *domains.Fetch
	requestID string
}

// Continue resumes the request, optionally overriding its URL, method,
// or headers.
func (r *RequestHandle) Continue(ctx context.Context, overrides domains.ContinueOverrides) error {
	return r.fetch.ContinueRequest(ctx, r.requestID, overrides)
}

// Respond fulfills the request with a synthetic response.
func (r *RequestHandle) Respond(ctx context.Context, mock domains.MockResponse) error {
	return r.fetch.FulfillRequest(ctx, r.requestID, mock)
}

// Interceptor is one registered network-interception rule, per spec.md
// §3.
type Interceptor struct {
	URLPattern string
	Action     InterceptAction
	Mock       domains.MockResponse
	RedirectTo string
	Rewriter   func(ctx context.Context, req *RequestHandle)
}

// Registry holds every registered dialog handler and interceptor for
// one attached session. It is reset (Clear) on browser close, per
// spec.md §3's Interceptor lifecycle note.
type Registry struct {
	mu           sync.Mutex
	dialogs      map[dialogKey]DialogHandler
	interceptors []Interceptor // insertion order, per spec.md §3
	fetch        *domains.Fetch
	fetchEnabled bool
	stopFetch    func()
	dialogSub    *bus.Subscription
}

// New creates an empty Registry bound to one attached session's Page
// (for dialogs) and Fetch (for interception) adapters.
func New(b *bus.Bus, fetch *domains.Fetch) *Registry {
	r := &Registry{
		dialogs: make(map[dialogKey]DialogHandler),
		fetch:   fetch,
	}
	ch, sub := b.Subscribe(bus.KindJavascriptDialog)
	r.dialogSub = sub
	go func() {
		for ev := range ch {
			payload, ok := ev.Payload.(bus.DialogPayload)
			if !ok {
				continue
			}
			r.dispatchDialog(payload)
		}
	}()
	return r
}

// OnDialog registers handler for dialogs of dialogType whose message
// exactly matches message. An empty message matches any message of that
// type.
func (r *Registry) OnDialog(dialogType, message string, handler DialogHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs[dialogKey{dialogType, message}] = handler
}

func (r *Registry) dispatchDialog(payload bus.DialogPayload) {
	r.mu.Lock()
	handler, ok := r.dialogs[dialogKey{payload.Type, payload.Message}]
	if !ok {
		handler, ok = r.dialogs[dialogKey{payload.Type, ""}]
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	handler(context.Background(), Dialog{
		Type:    payload.Type,
		Message: payload.Message,
		Accept:  payload.Accept,
		Dismiss: payload.Dismiss,
	})
}

// Intercept registers a network interceptor, enabling the Fetch domain
// on first use.
func (r *Registry) Intercept(ctx context.Context, interceptor Interceptor) error {
	r.mu.Lock()
	r.interceptors = append(r.interceptors, interceptor)
	needsEnable := !r.fetchEnabled
	r.mu.Unlock()

	if needsEnable {
		if err := r.fetch.Enable(ctx, []domains.Pattern{{RequestStage: "Request"}}); err != nil {
			return err
		}
		r.mu.Lock()
		r.fetchEnabled = true
		r.stopFetch = r.fetch.Subscribe(r.handlePaused)
		r.mu.Unlock()
	}
	return nil
}

func (r *Registry) handlePaused(req domains.PausedRequest) {
	ctx := context.Background()
	r.mu.Lock()
	interceptor, ok := r.match(req.URL)
	r.mu.Unlock()
	if !ok {
		r.fetch.ContinueRequest(ctx, req.RequestID, domains.ContinueOverrides{})
		return
	}

	switch interceptor.Action {
	case ActionBlock:
		r.fetch.FailRequest(ctx, req.RequestID, "BlockedByClient")
	case ActionMockResponse:
		r.fetch.FulfillRequest(ctx, req.RequestID, interceptor.Mock)
	case ActionRedirect:
		r.fetch.RedirectRequest(ctx, req.RequestID, interceptor.RedirectTo)
	case ActionRewrite:
		interceptor.Rewriter(ctx, &RequestHandle{
			URL: req.URL, Method: req.Method, Headers: req.Headers,
			fetch: r.fetch, requestID: req.RequestID,
		})
	default:
		r.fetch.ContinueRequest(ctx, req.RequestID, domains.ContinueOverrides{})
	}
}

// match finds the first (insertion order) registered interceptor whose
// URLPattern is a substring of url, or matches "*" wildcard as any.
func (r *Registry) match(url string) (Interceptor, bool) {
	for _, ic := range r.interceptors {
		if ic.URLPattern == "*" || strings.Contains(url, ic.URLPattern) {
			return ic, true
		}
	}
	return Interceptor{}, false
}

// Clear removes every registered dialog handler and interceptor and
// stops the Fetch subscription, per spec.md §3's "reset on browser
// close" lifecycle note.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs = make(map[dialogKey]DialogHandler)
	r.interceptors = nil
	if r.stopFetch != nil {
		r.stopFetch()
		r.stopFetch = nil
	}
	if r.dialogSub != nil {
		r.dialogSub.Release()
		r.dialogSub = nil
	}
	r.fetchEnabled = false
}
