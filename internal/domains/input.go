package domains

import "context"

// Input wraps the CDP Input domain. Grounded on the
// dispatchMouseClick/dispatchMouseEvent sequencing in tomyan-hubcap's
// internal/chrome/input.go and dom_helpers.go: every click is
// mouseMoved, then mousePressed, then mouseReleased at the same point.
type Input struct {
	sessionDomain
}

// MouseButton names the button argument of DispatchMouseEvent.
type MouseButton string

const (
	MouseButtonNone  MouseButton = "none"
	MouseButtonLeft  MouseButton = "left"
	MouseButtonRight MouseButton = "right"
)

// DispatchMouseEvent issues one Input.dispatchMouseEvent call.
func (i *Input) DispatchMouseEvent(ctx context.Context, eventType string, x, y float64, button MouseButton, clickCount int) error {
	_, err := i.call(ctx, "Input.dispatchMouseEvent", struct {
		Type       string      `json:"type"`
		X          float64     `json:"x"`
		Y          float64     `json:"y"`
		Button     MouseButton `json:"button"`
		ClickCount int         `json:"clickCount,omitempty"`
	}{eventType, x, y, button, clickCount})
	return err
}

// Click performs the three-event mouse click sequence at (x, y), matching
// the action pipeline's click step (spec.md §4.9) for a single click. A
// double click issues this once with clickCount 2, a right click passes
// MouseButtonRight.
func (i *Input) Click(ctx context.Context, x, y float64, button MouseButton, clickCount int) error {
	if err := i.DispatchMouseEvent(ctx, "mouseMoved", x, y, MouseButtonNone, 0); err != nil {
		return err
	}
	if err := i.DispatchMouseEvent(ctx, "mousePressed", x, y, button, clickCount); err != nil {
		return err
	}
	return i.DispatchMouseEvent(ctx, "mouseReleased", x, y, button, clickCount)
}

// MoveMouse dispatches a bare mouseMoved event, used by hover().
func (i *Input) MoveMouse(ctx context.Context, x, y float64) error {
	return i.DispatchMouseEvent(ctx, "mouseMoved", x, y, MouseButtonNone, 0)
}

// DispatchKeyEvent issues one Input.dispatchKeyEvent call, used by press()
// and write().
func (i *Input) DispatchKeyEvent(ctx context.Context, eventType, key, code, text string) error {
	_, err := i.call(ctx, "Input.dispatchKeyEvent", struct {
		Type string `json:"type"`
		Key  string `json:"key,omitempty"`
		Code string `json:"code,omitempty"`
		Text string `json:"text,omitempty"`
	}{eventType, key, code, text})
	return err
}

// InsertText types text as a single composed event. write() does not use
// it; it dispatches one key event per rune instead.
func (i *Input) InsertText(ctx context.Context, text string) error {
	_, err := i.call(ctx, "Input.insertText", struct {
		Text string `json:"text"`
	}{text})
	return err
}

// DispatchMouseWheelEvent issues Input.dispatchMouseEvent with a wheel
// type. scroll() and scrollTo() do not use it: they scroll through
// window.scrollBy and DOM.scrollIntoViewIfNeeded.
func (i *Input) DispatchMouseWheelEvent(ctx context.Context, x, y, deltaX, deltaY float64) error {
	_, err := i.call(ctx, "Input.dispatchMouseEvent", struct {
		Type   string  `json:"type"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		DeltaX float64 `json:"deltaX"`
		DeltaY float64 `json:"deltaY"`
	}{"mouseWheel", x, y, deltaX, deltaY})
	return err
}
