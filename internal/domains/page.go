package domains

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/suziejprince/taiko/internal/bus"
)

// Page wraps the CDP Page domain. Grounded on the Navigate/Reload/GoBack/
// GoForward/NavigateAndWait methods in tomyan-hubcap's
// internal/chrome/navigate.go and the lifecycle-event subscriptions in
// internal/chrome/wait.go, restructured to republish onto an
// *bus.Bus instead of hubcap's own ad hoc channel fan-out.
type Page struct {
	sessionDomain
}

// Enable turns on the Page domain for this session.
func (p *Page) Enable(ctx context.Context) error {
	_, err := p.call(ctx, "Page.enable", nil)
	return err
}

// EnableLifecycleEvents turns on Page.lifecycleEvent, which carries
// firstPaint and firstMeaningfulPaint among others.
func (p *Page) EnableLifecycleEvents(ctx context.Context) error {
	_, err := p.call(ctx, "Page.setLifecycleEventsEnabled", struct {
		Enabled bool `json:"enabled"`
	}{true})
	return err
}

// Navigate issues Page.navigate and returns the new frame's id.
func (p *Page) Navigate(ctx context.Context, url string) (frameID string, err error) {
	raw, err := p.call(ctx, "Page.navigate", struct {
		URL string `json:"url"`
	}{url})
	if err != nil {
		return "", err
	}
	var result struct {
		FrameID   string `json:"frameId"`
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("domains: decoding Page.navigate result: %w", err)
	}
	if result.ErrorText != "" {
		return "", fmt.Errorf("domains: navigation to %s failed: %s", url, result.ErrorText)
	}
	return result.FrameID, nil
}

// Reload issues Page.reload. The URL argument the source implementation
// accepts on its reload(url) call has no effect on the underlying CDP
// command and is intentionally not forwarded here; see DESIGN.md.
func (p *Page) Reload(ctx context.Context, ignoreCache bool) error {
	_, err := p.call(ctx, "Page.reload", struct {
		IgnoreCache bool `json:"ignoreCache"`
	}{ignoreCache})
	return err
}

// NavigateToHistoryEntry moves to an already-visited history entry, used
// by GoBack/GoForward.
func (p *Page) NavigateToHistoryEntry(ctx context.Context, entryID int) error {
	_, err := p.call(ctx, "Page.navigateToHistoryEntry", struct {
		EntryID int `json:"entryId"`
	}{entryID})
	return err
}

// NavigationHistoryEntry is one entry returned by GetNavigationHistory.
type NavigationHistoryEntry struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// GetNavigationHistory returns the current index and all entries.
func (p *Page) GetNavigationHistory(ctx context.Context) (currentIndex int, entries []NavigationHistoryEntry, err error) {
	raw, err := p.call(ctx, "Page.getNavigationHistory", nil)
	if err != nil {
		return 0, nil, err
	}
	var result struct {
		CurrentIndex int                       `json:"currentIndex"`
		Entries      []NavigationHistoryEntry  `json:"entries"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, nil, fmt.Errorf("domains: decoding Page.getNavigationHistory result: %w", err)
	}
	return result.CurrentIndex, result.Entries, nil
}

// HandleJavaScriptDialog accepts or dismisses a pending dialog, optionally
// supplying prompt text for window.prompt dialogs.
func (p *Page) HandleJavaScriptDialog(ctx context.Context, accept bool, promptText string) error {
	_, err := p.call(ctx, "Page.handleJavaScriptDialog", struct {
		Accept     bool   `json:"accept"`
		PromptText string `json:"promptText,omitempty"`
	}{accept, promptText})
	return err
}

// CaptureScreenshot issues Page.captureScreenshot and returns the decoded
// PNG bytes, backing the screenshot() verb.
func (p *Page) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	raw, err := p.call(ctx, "Page.captureScreenshot", struct {
		Format string `json:"format"`
	}{"png"})
	if err != nil {
		return nil, err
	}
	var result struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding Page.captureScreenshot result: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		return nil, fmt.Errorf("domains: decoding screenshot data: %w", err)
	}
	return data, nil
}

// Close issues Page.close, closing the tab this session is attached to.
func (p *Page) Close(ctx context.Context) error {
	_, err := p.call(ctx, "Page.close", nil)
	return err
}

// Subscribe starts forwarding Page domain events onto b as the bus.Kind
// values from spec.md §4.3's CDP-event-to-bus-event table, and returns a
// stop function that must be called on every exit path per the listener
// hygiene invariant (spec.md §8).
func (p *Page) Subscribe(b *bus.Bus, targetID string) (stop func()) {
	type wire struct {
		ch     chan json.RawMessage
		method string
		kind   bus.Kind
	}
	subs := []wire{
		{p.subscribe("Page.frameStartedLoading"), "Page.frameStartedLoading", bus.KindFrameStartedLoading},
		{p.subscribe("Page.frameStoppedLoading"), "Page.frameStoppedLoading", bus.KindFrameStoppedLoading},
		{p.subscribe("Page.loadEventFired"), "Page.loadEventFired", bus.KindLoadEventFired},
		{p.subscribe("Page.domContentEventFired"), "Page.domContentEventFired", bus.KindDOMContentEventFired},
	}

	done := make(chan struct{})
	for _, s := range subs {
		go func(s wire) {
			for {
				select {
				case <-s.ch:
					b.Publish(bus.Event{Kind: s.kind})
				case <-done:
					return
				}
			}
		}(s)
	}

	lifecycle := p.subscribe("Page.lifecycleEvent")
	go func() {
		for {
			select {
			case raw, ok := <-lifecycle:
				if !ok {
					return
				}
				var ev struct {
					Name string `json:"name"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				switch ev.Name {
				case "firstPaint":
					b.Publish(bus.Event{Kind: bus.KindFirstPaint})
				case "firstMeaningfulPaint", "firstMeaningfulPaintCandidate":
					b.Publish(bus.Event{Kind: bus.KindFirstMeaningfulPaint})
				}
			case <-done:
				return
			}
		}
	}()

	dialog := p.subscribe("Page.javascriptDialogOpening")
	go func() {
		for {
			select {
			case raw, ok := <-dialog:
				if !ok {
					return
				}
				var ev struct {
					Type    string `json:"type"`
					Message string `json:"message"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				b.Publish(bus.Event{Kind: bus.KindJavascriptDialog, Payload: bus.DialogPayload{
					TargetID: targetID,
					Type:     ev.Type,
					Message:  ev.Message,
					Accept: func(promptText string) error {
						return p.HandleJavaScriptDialog(context.Background(), true, promptText)
					},
					Dismiss: func() error {
						return p.HandleJavaScriptDialog(context.Background(), false, "")
					},
				}})
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		for _, s := range subs {
			p.unsubscribe(s.method, s.ch)
		}
		p.unsubscribe("Page.lifecycleEvent", lifecycle)
		p.unsubscribe("Page.javascriptDialogOpening", dialog)
	}
}
