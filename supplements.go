package taiko

import (
	"context"
	"fmt"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/domains"
	"github.com/suziejprince/taiko/internal/recorder"
	iselector "github.com/suziejprince/taiko/internal/selector"
)

// ShadowElement is a one-shot snapshot of a node reached by piercing a
// shadow root, returned by InShadow. Unlike Element it does not
// re-resolve on every call, since shadow-piercing selectors have no
// composable representation in internal/selector yet.
type ShadowElement struct {
	nodeID int
	x, y   float64
}

// InShadow resolves innerSelector rooted at the shadow root of the
// element hostSelector matches, piercing exactly one level of shadow
// DOM, per the supplemented shadow-DOM feature in SPEC_FULL.md.
func InShadow(ctx context.Context, hostSelector, innerSelector string) (ShadowElement, error) {
	s, err := current()
	if err != nil {
		return ShadowElement{}, err
	}
	h := s.browser.Handles()
	match, err := iselector.ResolveInShadow(ctx, h.DOM, s.browser.RootNodeID(), hostSelector, innerSelector)
	if err != nil {
		return ShadowElement{}, newError(ElementNotFound, fmt.Sprintf("%s >>> %s", hostSelector, innerSelector), err)
	}
	x, y := match.Rect.Center()
	return ShadowElement{nodeID: match.NodeID, x: x, y: y}, nil
}

// Text returns the innerText of the shadow-piercing match.
func (e ShadowElement) Text(ctx context.Context) (string, error) {
	s, err := current()
	if err != nil {
		return "", err
	}
	h := s.browser.Handles()
	objectID, err := h.DOM.ResolveNode(ctx, e.nodeID)
	if err != nil {
		return "", newError(WireError, "resolving shadow node", err)
	}
	defer h.Runtime.ReleaseObject(ctx, objectID)
	result, err := h.Runtime.CallFunctionOn(ctx, objectID, "function() { return this.innerText; }", nil, true)
	if err != nil {
		return "", newError(WireError, "reading shadow node text", err)
	}
	var text string
	if err := jsonUnmarshalInto(result.Value, &text); err != nil {
		return "", newError(WireError, "decoding shadow node text", err)
	}
	return text, nil
}

// Click clicks the center of the shadow-piercing match directly,
// bypassing the occlusion pipeline since shadow hosts are frequently
// covered by their own light-DOM projection.
func (e ShadowElement) Click(ctx context.Context) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	h := s.browser.Handles()
	if err := h.DOM.ScrollIntoViewIfNeeded(ctx, e.nodeID); err != nil {
		return Result{}, newError(WireError, "scrolling shadow node into view", err)
	}
	if err := h.Input.Click(ctx, e.x, e.y, domains.MouseButtonLeft, 1); err != nil {
		return Result{}, newError(WireError, "clicking shadow node", err)
	}
	return describe("Clicked shadow element"), nil
}

// ConsoleHandler receives console.* calls made by the current page.
type ConsoleHandler func(targetID, messageType, text string)

// OnConsoleMessage registers handler for every console.* call on the
// current session, returning a function that stops delivery.
func OnConsoleMessage(handler ConsoleHandler) (func(), error) {
	s, err := current()
	if err != nil {
		return nil, err
	}
	ch, sub := s.browser.Bus().Subscribe(bus.KindConsoleMessage)
	go func() {
		for ev := range ch {
			if p, ok := ev.Payload.(bus.ConsoleMessagePayload); ok {
				handler(p.TargetID, p.Type, p.Text)
			}
		}
	}()
	return sub.Release, nil
}

// ExceptionHandler receives uncaught exceptions thrown by the current
// page.
type ExceptionHandler func(targetID, text string)

// OnException registers handler for every uncaught exception on the
// current session, returning a function that stops delivery.
func OnException(handler ExceptionHandler) (func(), error) {
	s, err := current()
	if err != nil {
		return nil, err
	}
	ch, sub := s.browser.Bus().Subscribe(bus.KindException)
	go func() {
		for ev := range ch {
			if p, ok := ev.Payload.(bus.ExceptionPayload); ok {
				handler(p.TargetID, p.Text)
			}
		}
	}()
	return sub.Release, nil
}

// Recording is a live HAR capture started by StartRecording.
type Recording struct {
	rec *recorder.Recorder
}

// StartRecording begins capturing network activity as a HAR log.
// Call Stop on the returned Recording to retrieve it.
func StartRecording(ctx context.Context) (Recording, error) {
	s, err := current()
	if err != nil {
		return Recording{}, err
	}
	return Recording{rec: recorder.Start(s.browser.Handles().Network)}, nil
}

// Stop ends the capture and returns the assembled HAR log.
func (r Recording) Stop() *recorder.Log { return r.rec.Stop() }

// EmulateOptions configures Emulate.
type EmulateOptions struct {
	UserAgent string
	Media     string // "print", "screen", or "" to clear
}

// Emulate applies device/media emulation overrides to the current tab.
func Emulate(ctx context.Context, opts EmulateOptions) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	emu := s.browser.Handles().Emulation
	if opts.UserAgent != "" {
		if err := emu.SetUserAgentOverride(ctx, opts.UserAgent); err != nil {
			return Result{}, newError(WireError, "setting user agent", err)
		}
	}
	if opts.Media != "" {
		if err := emu.SetEmulatedMedia(ctx, opts.Media); err != nil {
			return Result{}, newError(WireError, "setting emulated media", err)
		}
	}
	return describe("Emulation applied"), nil
}

// SetLocation overrides the current tab's geolocation.
func SetLocation(ctx context.Context, latitude, longitude, accuracy float64) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	if err := s.browser.Handles().Emulation.SetGeolocationOverride(ctx, latitude, longitude, accuracy); err != nil {
		return Result{}, newError(WireError, "setting geolocation", err)
	}
	return describe("Geolocation set to %f,%f", latitude, longitude), nil
}

// SetPermission grants or denies permission for origin ("granted",
// "denied", or "prompt").
func SetPermission(ctx context.Context, origin, permission, state string) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	if err := s.browser.Target().SetPermission(ctx, origin, permission, state); err != nil {
		return Result{}, newError(WireError, "setting permission", err)
	}
	return describe("Permission %q set to %q for %s", permission, state, origin), nil
}

// WriteClipboard writes text to the system clipboard via the page's
// Clipboard API, requiring the clipboard-write permission to already be
// granted (see SetPermission).
func WriteClipboard(ctx context.Context, text string) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	expr := fmt.Sprintf("navigator.clipboard.writeText(%q)", text)
	if _, err := s.browser.Handles().Runtime.Evaluate(ctx, expr, true, true); err != nil {
		return Result{}, newError(WireError, "writing clipboard", err)
	}
	return describe("Clipboard written"), nil
}

// ReadClipboard reads the system clipboard's text contents.
func ReadClipboard(ctx context.Context) (string, error) {
	s, err := current()
	if err != nil {
		return "", err
	}
	result, err := s.browser.Handles().Runtime.Evaluate(ctx, "navigator.clipboard.readText()", true, true)
	if err != nil {
		return "", newError(WireError, "reading clipboard", err)
	}
	var text string
	if err := jsonUnmarshalInto(result.Value, &text); err != nil {
		return "", newError(WireError, "decoding clipboard text", err)
	}
	return text, nil
}
