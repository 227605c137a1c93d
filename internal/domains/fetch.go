package domains

import (
	"context"
	"encoding/base64"
	"encoding/json"
)

// Fetch wraps the CDP Fetch domain, the mechanism behind request
// interception (spec.md §4.10): block/mock/redirect/rewrite actions all
// resolve a paused request via Fetch.continueRequest/failRequest/
// fulfillRequest. tomyan-hubcap has no equivalent (its query/page/input
// layers never intercept network traffic), so this adapter follows the
// same sessionDomain shape as the rest of package domains rather than
// any specific hubcap file.
type Fetch struct {
	sessionDomain
}

// Pattern is one Fetch.RequestPattern entry.
type Pattern struct {
	URLPattern   string
	RequestStage string // "Request" or "Response"
}

// Enable turns on request interception for the given URL patterns. An
// empty pattern list intercepts everything.
func (f *Fetch) Enable(ctx context.Context, patterns []Pattern) error {
	ps := make([]struct {
		URLPattern   string `json:"urlPattern,omitempty"`
		RequestStage string `json:"requestStage,omitempty"`
	}, len(patterns))
	for i, p := range patterns {
		ps[i].URLPattern = p.URLPattern
		ps[i].RequestStage = p.RequestStage
	}
	_, err := f.call(ctx, "Fetch.enable", struct {
		Patterns []struct {
			URLPattern   string `json:"urlPattern,omitempty"`
			RequestStage string `json:"requestStage,omitempty"`
		} `json:"patterns,omitempty"`
	}{ps})
	return err
}

// Disable turns off request interception.
func (f *Fetch) Disable(ctx context.Context) error {
	_, err := f.call(ctx, "Fetch.disable", nil)
	return err
}

// PausedRequest is the subset of Fetch.requestPaused this library reads.
type PausedRequest struct {
	RequestID string
	URL       string
	Method    string
	Headers   map[string]string
}

// Subscribe delivers every Fetch.requestPaused event to handle until
// stop is called. Unlike the other domain adapters, paused requests are
// not republished on the Event Bus: they must be resolved (continue/
// fail/fulfill) by the caller, which the bus's fire-and-forget publish
// model cannot guarantee.
func (f *Fetch) Subscribe(handle func(PausedRequest)) (stop func()) {
	ch := f.subscribe("Fetch.requestPaused")
	done := make(chan struct{})
	go func() {
		for {
			select {
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var ev struct {
					RequestID string `json:"requestId"`
					Request   struct {
						URL     string            `json:"url"`
						Method  string            `json:"method"`
						Headers map[string]string `json:"headers"`
					} `json:"request"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				handle(PausedRequest{
					RequestID: ev.RequestID,
					URL:       ev.Request.URL,
					Method:    ev.Request.Method,
					Headers:   ev.Request.Headers,
				})
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		f.unsubscribe("Fetch.requestPaused", ch)
	}
}

// ContinueOverrides optionally rewrites a continued request, used by the
// requestRewriter interceptor action.
type ContinueOverrides struct {
	URL     string
	Method  string
	Headers map[string]string
}

// ContinueRequest resumes requestID unmodified, or with overrides applied.
func (f *Fetch) ContinueRequest(ctx context.Context, requestID string, overrides ContinueOverrides) error {
	headers := headerEntries(overrides.Headers)
	_, err := f.call(ctx, "Fetch.continueRequest", struct {
		RequestID string         `json:"requestId"`
		URL       string         `json:"url,omitempty"`
		Method    string         `json:"method,omitempty"`
		Headers   []headerEntry  `json:"headers,omitempty"`
	}{requestID, overrides.URL, overrides.Method, headers})
	return err
}

// FailRequest aborts requestID with the given CDP network error reason
// (e.g. "BlockedByClient"), used by the block interceptor action.
func (f *Fetch) FailRequest(ctx context.Context, requestID, errorReason string) error {
	_, err := f.call(ctx, "Fetch.failRequest", struct {
		RequestID   string `json:"requestId"`
		ErrorReason string `json:"errorReason"`
	}{requestID, errorReason})
	return err
}

// MockResponse is the shape a mockResponse interceptor action supplies.
type MockResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// FulfillRequest resolves requestID with a synthetic response, used by
// the mockResponse interceptor action.
func (f *Fetch) FulfillRequest(ctx context.Context, requestID string, mock MockResponse) error {
	_, err := f.call(ctx, "Fetch.fulfillRequest", struct {
		RequestID      string        `json:"requestId"`
		ResponseCode   int           `json:"responseCode"`
		ResponseHeaders []headerEntry `json:"responseHeaders,omitempty"`
		Body           string        `json:"body,omitempty"`
	}{requestID, mock.StatusCode, headerEntries(mock.Headers), base64.StdEncoding.EncodeToString(mock.Body)})
	return err
}

// RedirectRequest resolves requestID by rewriting its URL, used by the
// redirectUrl interceptor action. Fetch.continueRequest is used rather
// than fulfilling a synthetic 3xx response, so the browser itself
// performs the navigation.
func (f *Fetch) RedirectRequest(ctx context.Context, requestID, redirectURL string) error {
	return f.ContinueRequest(ctx, requestID, ContinueOverrides{URL: redirectURL})
}

type headerEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func headerEntries(headers map[string]string) []headerEntry {
	if len(headers) == 0 {
		return nil
	}
	entries := make([]headerEntry, 0, len(headers))
	for name, value := range headers {
		entries = append(entries, headerEntry{Name: name, Value: value})
	}
	return entries
}
