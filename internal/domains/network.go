package domains

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suziejprince/taiko/internal/bus"
)

// Network wraps the CDP Network domain. Grounded on
// tomyan-hubcap's internal/chrome/network.go: CaptureNetwork's
// requestWillBeSent/loadingFinished/loadingFailed subscriptions,
// EmulateNetworkConditions, BlockURLs and the Fetch-domain interception
// helpers (EnableIntercept/DisableIntercept), republished here onto the
// bus instead of hubcap's capture-buffer channels.
type Network struct {
	sessionDomain
}

// Enable turns on the Network domain for this session.
func (n *Network) Enable(ctx context.Context) error {
	_, err := n.call(ctx, "Network.enable", nil)
	return err
}

// SetBlockedURLs installs a list of URL patterns CDP should block at the
// network layer. The request interceptor does not use it; it blocks
// paused requests with Fetch.failRequest.
func (n *Network) SetBlockedURLs(ctx context.Context, patterns []string) error {
	_, err := n.call(ctx, "Network.setBlockedURLs", struct {
		URLs []string `json:"urls"`
	}{patterns})
	return err
}

// EmulateNetworkConditions throttles the session per spec.md's Emulate
// supplement.
func (n *Network) EmulateNetworkConditions(ctx context.Context, offline bool, latencyMs int, downloadThroughput, uploadThroughput float64) error {
	_, err := n.call(ctx, "Network.emulateNetworkConditions", struct {
		Offline            bool    `json:"offline"`
		Latency            int     `json:"latency"`
		DownloadThroughput float64 `json:"downloadThroughput"`
		UploadThroughput   float64 `json:"uploadThroughput"`
	}{offline, latencyMs, downloadThroughput, uploadThroughput})
	return err
}

// GetCookies returns cookies visible to the current page.
func (n *Network) GetCookies(ctx context.Context) ([]Cookie, error) {
	raw, err := n.call(ctx, "Network.getCookies", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Cookies []Cookie `json:"cookies"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding Network.getCookies result: %w", err)
	}
	return result.Cookies, nil
}

// Cookie mirrors the fields of CDP's Network.Cookie this library exposes.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	HTTPOnly bool   `json:"httpOnly"`
	Secure   bool   `json:"secure"`
}

// SetCookie installs a single cookie.
func (n *Network) SetCookie(ctx context.Context, c Cookie) error {
	_, err := n.call(ctx, "Network.setCookie", c)
	return err
}

// RequestEvent is decoded from Network.requestWillBeSent.
type RequestEvent struct {
	RequestID string `json:"requestId"`
	Request   struct {
		URL    string `json:"url"`
		Method string `json:"method"`
	} `json:"request"`
}

// Subscribe forwards requestWillBeSent as bus.KindXHREvent (spec.md §4.3:
// "xhrEvent: Network.requestWillBeSent"). Returns a stop function that
// must be called on every exit path.
func (n *Network) Subscribe(b *bus.Bus) (stop func()) {
	reqCh := n.subscribe("Network.requestWillBeSent")
	done := make(chan struct{})

	go func() {
		for {
			select {
			case raw, ok := <-reqCh:
				if !ok {
					return
				}
				var ev RequestEvent
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				b.Publish(bus.Event{Kind: bus.KindXHREvent, Payload: bus.XHREventPayload{
					RequestID: ev.RequestID,
					URL:       ev.Request.URL,
					Method:    ev.Request.Method,
				}})
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		n.unsubscribe("Network.requestWillBeSent", reqCh)
	}
}

// HAREvent is one Network event package recorder needs to assemble a HAR
// log, grounded on hubcap's CaptureHAR's requestWillBeSent/
// responseReceived/loadingFinished subscriptions.
type HAREvent struct {
	Stage     string // "request", "response", or "finished"
	RequestID string
	URL       string
	Method    string
	Status    int
	MimeType  string
	Headers   map[string]string
	Timestamp float64
}

// SubscribeHAR forwards requestWillBeSent/responseReceived/
// loadingFinished as HAREvents. Returns a stop function that must be
// called on every exit path.
func (n *Network) SubscribeHAR() (<-chan HAREvent, func()) {
	reqCh := n.subscribe("Network.requestWillBeSent")
	respCh := n.subscribe("Network.responseReceived")
	finCh := n.subscribe("Network.loadingFinished")
	out := make(chan HAREvent, 256)
	done := make(chan struct{})

	emit := func(ev HAREvent) {
		select {
		case out <- ev:
		default:
		}
	}

	go func() {
		for {
			select {
			case raw, ok := <-reqCh:
				if !ok {
					return
				}
				var ev struct {
					RequestID string  `json:"requestId"`
					Timestamp float64 `json:"timestamp"`
					Request   struct {
						URL     string            `json:"url"`
						Method  string            `json:"method"`
						Headers map[string]string `json:"headers"`
					} `json:"request"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				emit(HAREvent{Stage: "request", RequestID: ev.RequestID, URL: ev.Request.URL,
					Method: ev.Request.Method, Headers: ev.Request.Headers, Timestamp: ev.Timestamp})
			case raw, ok := <-respCh:
				if !ok {
					return
				}
				var ev struct {
					RequestID string `json:"requestId"`
					Response  struct {
						URL      string            `json:"url"`
						Status   int               `json:"status"`
						MimeType string            `json:"mimeType"`
						Headers  map[string]string `json:"headers"`
					} `json:"response"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				emit(HAREvent{Stage: "response", RequestID: ev.RequestID, URL: ev.Response.URL,
					Status: ev.Response.Status, MimeType: ev.Response.MimeType, Headers: ev.Response.Headers})
			case raw, ok := <-finCh:
				if !ok {
					return
				}
				var ev struct {
					RequestID string  `json:"requestId"`
					Timestamp float64 `json:"timestamp"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				emit(HAREvent{Stage: "finished", RequestID: ev.RequestID, Timestamp: ev.Timestamp})
			case <-done:
				return
			}
		}
	}()

	return out, func() {
		close(done)
		n.unsubscribe("Network.requestWillBeSent", reqCh)
		n.unsubscribe("Network.responseReceived", respCh)
		n.unsubscribe("Network.loadingFinished", finCh)
	}
}

// RequestLifecycle carries the raw request-start/request-finish signals
// the Network-Idle Tracker (package netidle) needs to maintain its
// in-flight set; these are not published on the bus themselves, since
// spec.md §4.3 only maps requestWillBeSent to the bus as xhrEvent and
// leaves networkIdle itself to be computed, not translated.
type RequestLifecycle struct {
	Started  <-chan string // requestId
	Finished <-chan string // requestId, from loadingFinished or loadingFailed
}

// SubscribeRequestLifecycle feeds the Network-Idle Tracker. Returns a stop
// function that must be called on every exit path.
func (n *Network) SubscribeRequestLifecycle() (RequestLifecycle, func()) {
	startedCh := make(chan string, 256)
	finishedCh := make(chan string, 256)

	reqCh := n.subscribe("Network.requestWillBeSent")
	finCh := n.subscribe("Network.loadingFinished")
	failCh := n.subscribe("Network.loadingFailed")
	done := make(chan struct{})

	forward := func(raw json.RawMessage, out chan<- string) {
		var ev struct {
			RequestID string `json:"requestId"`
		}
		if err := json.Unmarshal(raw, &ev); err != nil {
			return
		}
		select {
		case out <- ev.RequestID:
		default:
		}
	}

	go func() {
		for {
			select {
			case raw, ok := <-reqCh:
				if !ok {
					return
				}
				forward(raw, startedCh)
			case raw, ok := <-finCh:
				if !ok {
					return
				}
				forward(raw, finishedCh)
			case raw, ok := <-failCh:
				if !ok {
					return
				}
				forward(raw, finishedCh)
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		n.unsubscribe("Network.requestWillBeSent", reqCh)
		n.unsubscribe("Network.loadingFinished", finCh)
		n.unsubscribe("Network.loadingFailed", failCh)
	}
	return RequestLifecycle{Started: startedCh, Finished: finishedCh}, stop
}
