package domains

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/cdpwire"
)

// Target wraps the CDP Target domain, issued on the browser-level
// connection (no sessionId), per spec.md §4.1. Grounded on
// tomyan-hubcap's internal/chrome/navigate.go Targets/Pages/NewTab/
// CloseTab and client.go's attachToTarget handling.
type Target struct {
	wire *cdpwire.Client
}

// NewTarget builds the browser-level Target adapter.
func NewTarget(wire *cdpwire.Client) *Target { return &Target{wire: wire} }

// Info is one entry from Target.getTargets.
type Info struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Attached bool   `json:"attached"`
}

// GetTargets lists every target the browser currently knows about.
func (t *Target) GetTargets(ctx context.Context) ([]Info, error) {
	raw, err := t.wire.Call(ctx, "Target.getTargets", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		TargetInfos []Info `json:"targetInfos"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding Target.getTargets result: %w", err)
	}
	return result.TargetInfos, nil
}

// CreateTarget opens a new tab/page at url and returns its target id.
func (t *Target) CreateTarget(ctx context.Context, url string) (targetID string, err error) {
	raw, err := t.wire.Call(ctx, "Target.createTarget", struct {
		URL string `json:"url"`
	}{url})
	if err != nil {
		return "", err
	}
	var result struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("domains: decoding Target.createTarget result: %w", err)
	}
	return result.TargetID, nil
}

// AttachToTarget attaches (flattened) to targetID and returns the new
// session id used for every subsequent CallSession on that target.
func (t *Target) AttachToTarget(ctx context.Context, targetID string) (sessionID string, err error) {
	raw, err := t.wire.Call(ctx, "Target.attachToTarget", struct {
		TargetID string `json:"targetId"`
		Flatten  bool   `json:"flatten"`
	}{targetID, true})
	if err != nil {
		return "", err
	}
	var result struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("domains: decoding Target.attachToTarget result: %w", err)
	}
	return result.SessionID, nil
}

// DetachFromTarget releases a session previously returned by
// AttachToTarget.
func (t *Target) DetachFromTarget(ctx context.Context, sessionID string) error {
	_, err := t.wire.Call(ctx, "Target.detachFromTarget", struct {
		SessionID string `json:"sessionId"`
	}{sessionID})
	return err
}

// CloseTarget closes a tab/page outright.
func (t *Target) CloseTarget(ctx context.Context, targetID string) error {
	_, err := t.wire.Call(ctx, "Target.closeTarget", struct {
		TargetID string `json:"targetId"`
	}{targetID})
	return err
}

// SetDiscoverTargets turns Target.targetCreated/targetInfoChanged/
// targetDestroyed event delivery on or off.
func (t *Target) SetDiscoverTargets(ctx context.Context, discover bool) error {
	_, err := t.wire.Call(ctx, "Target.setDiscoverTargets", struct {
		Discover bool `json:"discover"`
	}{discover})
	return err
}

// SetPermission grants or denies a permission for origin at the
// browser level, matching hubcap's SetPermission (which resolves the
// origin via Runtime.evaluate and then issues this same browser-level
// command).
func (t *Target) SetPermission(ctx context.Context, origin, permission, state string) error {
	_, err := t.wire.Call(ctx, "Browser.setPermission", struct {
		Permission struct {
			Name string `json:"name"`
		} `json:"permission"`
		Setting string `json:"setting"`
		Origin  string `json:"origin"`
	}{struct {
		Name string `json:"name"`
	}{permission}, state, origin})
	return err
}

// Subscribe forwards Target.targetCreated as bus.KindTargetCreated and
// Target.targetInfoChanged (when the target's URL differs from the last
// one seen for it) as
// bus.KindTargetNavigated, per spec.md §4.3. Returns a stop function that
// must be called on every exit path.
func (t *Target) Subscribe(b *bus.Bus) (stop func()) {
	createdCh := t.wire.Subscribe("", "Target.targetCreated")
	changedCh := t.wire.Subscribe("", "Target.targetInfoChanged")
	done := make(chan struct{})

	go func() {
		lastURL := map[string]string{}
		for {
			select {
			case raw, ok := <-createdCh:
				if !ok {
					return
				}
				var ev struct {
					TargetInfo Info `json:"targetInfo"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				b.Publish(bus.Event{Kind: bus.KindTargetCreated, Payload: bus.TargetCreatedPayload{
					TargetID: ev.TargetInfo.TargetID,
					Type:     ev.TargetInfo.Type,
				}})
			case raw, ok := <-changedCh:
				if !ok {
					return
				}
				var ev struct {
					TargetInfo Info `json:"targetInfo"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				id := ev.TargetInfo.TargetID
				if prev, seen := lastURL[id]; seen && prev == ev.TargetInfo.URL {
					continue
				}
				lastURL[id] = ev.TargetInfo.URL
				b.Publish(bus.Event{Kind: bus.KindTargetNavigated, Payload: bus.TargetNavigatedPayload{
					TargetID: ev.TargetInfo.TargetID,
					URL:      ev.TargetInfo.URL,
				}})
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		t.wire.Unsubscribe("", "Target.targetCreated", createdCh)
		t.wire.Unsubscribe("", "Target.targetInfoChanged", changedCh)
	}
}
