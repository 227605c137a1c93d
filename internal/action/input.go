package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/suziejprince/taiko/internal/domains"
	"github.com/suziejprince/taiko/internal/selector"
)

// ErrNotWritable is returned by write()/clear() when the focused element
// is not a text input, textarea, select, or contentEditable node, or is
// disabled, per spec.md §4.9.
var ErrNotWritable = fmt.Errorf("action: the focused element is not writable")

// focusPollInterval is how often write() checks document.hasFocus() when
// no explicit target was given, per spec.md §4.9.
const focusPollInterval = 500 * time.Millisecond

// Focus resolves sel and focuses its first match.
func (p *Pipeline) Focus(ctx context.Context, sel selector.Selector) (Result, error) {
	matches, err := p.resolveCapped(ctx, sel)
	if err != nil {
		return Result{}, err
	}
	if err := p.focusNode(ctx, matches[0].NodeID); err != nil {
		return Result{}, err
	}
	return Result{Description: fmt.Sprintf("Focused %s", sel.Description)}, nil
}

func (p *Pipeline) focusNode(ctx context.Context, nodeID int) error {
	objectID, err := p.DOM.ResolveNode(ctx, nodeID)
	if err != nil {
		return err
	}
	defer p.Runtime.ReleaseObject(ctx, objectID)

	_, err = p.Runtime.CallFunctionOn(ctx, objectID, `function() { this.focus(); }`, nil, true)
	return err
}

// WriteOptions controls write()'s target and typing cadence.
type WriteOptions struct {
	// Into, if non-nil, is focused before typing. When nil, write() waits
	// for the document to already have focus, per spec.md §4.9.
	Into *selector.Selector
	// Delay is the per-character spacing. Zero uses DefaultWriteDelay.
	Delay time.Duration
}

// DefaultWriteDelay is used when WriteOptions.Delay is zero.
const DefaultWriteDelay = 10 * time.Millisecond

// Write types text into the focused (or explicitly targeted) element one
// character at a time, per spec.md §4.9.
func (p *Pipeline) Write(ctx context.Context, text string, opts WriteOptions) (Result, error) {
	if opts.Into != nil {
		matches, err := p.resolveCapped(ctx, *opts.Into)
		if err != nil {
			return Result{}, err
		}
		if err := p.focusNode(ctx, matches[0].NodeID); err != nil {
			return Result{}, err
		}
	} else if err := p.waitForDocumentFocus(ctx); err != nil {
		return Result{}, err
	}

	writable, isPassword, err := p.activeElementState(ctx)
	if err != nil {
		return Result{}, err
	}
	if !writable {
		return Result{}, ErrNotWritable
	}

	delay := opts.Delay
	if delay == 0 {
		delay = DefaultWriteDelay
	}

	for _, r := range text {
		ch := string(r)
		if err := p.Input.DispatchKeyEvent(ctx, "char", ch, "", ch); err != nil {
			return Result{}, err
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	shown := text
	if isPassword {
		shown = maskPassword(text)
	}
	return Result{Description: fmt.Sprintf("Wrote %q", shown)}, nil
}

func maskPassword(text string) string {
	masked := make([]byte, len([]rune(text)))
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked)
}

func (p *Pipeline) waitForDocumentFocus(ctx context.Context) error {
	for {
		result, err := p.Runtime.Evaluate(ctx, "document.hasFocus()", false, true)
		if err != nil {
			return err
		}
		var focused bool
		if err := json.Unmarshal(result.Value, &focused); err != nil {
			return fmt.Errorf("action: decoding document.hasFocus() result: %w", err)
		}
		if focused {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(focusPollInterval):
		}
	}
}

const activeElementStateProbe = `(function() {
	var el = document.activeElement;
	if (!el) return {writable: false, password: false};
	var tag = el.tagName;
	var writable = (tag === 'INPUT' || tag === 'TEXTAREA' || tag === 'SELECT' || el.isContentEditable) && !el.disabled;
	var password = tag === 'INPUT' && el.type === 'password';
	return {writable: writable, password: password};
})()`

func (p *Pipeline) activeElementState(ctx context.Context) (writable, isPassword bool, err error) {
	result, err := p.Runtime.Evaluate(ctx, activeElementStateProbe, false, true)
	if err != nil {
		return false, false, err
	}
	var state struct {
		Writable bool `json:"writable"`
		Password bool `json:"password"`
	}
	if err := json.Unmarshal(result.Value, &state); err != nil {
		return false, false, fmt.Errorf("action: decoding active element state: %w", err)
	}
	return state.Writable, state.Password, nil
}

// Clear focuses sel (or the already-focused element when sel is the
// zero value), selects all via a triple click, then deletes via
// Backspace, per spec.md §4.9.
func (p *Pipeline) Clear(ctx context.Context, sel *selector.Selector) (Result, error) {
	var nodeID int
	description := "the focused field"
	if sel != nil {
		matches, err := p.resolveCapped(ctx, *sel)
		if err != nil {
			return Result{}, err
		}
		nodeID = matches[0].NodeID
		description = sel.Description
		if err := p.focusNode(ctx, nodeID); err != nil {
			return Result{}, err
		}
	}

	if writable, _, err := p.activeElementState(ctx); err != nil {
		return Result{}, err
	} else if !writable {
		return Result{}, ErrNotWritable
	}

	if nodeID != 0 {
		rect, err := refreshRect(ctx, p.DOM, nodeID)
		if err != nil {
			return Result{}, err
		}
		x, y := rect.Center()
		if err := p.Input.DispatchMouseEvent(ctx, "mouseMoved", x, y, domains.MouseButtonNone, 0); err != nil {
			return Result{}, err
		}
		if err := p.Input.DispatchMouseEvent(ctx, "mousePressed", x, y, domains.MouseButtonLeft, 3); err != nil {
			return Result{}, err
		}
		if err := p.Input.DispatchMouseEvent(ctx, "mouseReleased", x, y, domains.MouseButtonLeft, 3); err != nil {
			return Result{}, err
		}
	}

	if err := p.Input.DispatchKeyEvent(ctx, "keyDown", "Backspace", "Backspace", ""); err != nil {
		return Result{}, err
	}
	if err := p.Input.DispatchKeyEvent(ctx, "keyUp", "Backspace", "Backspace", ""); err != nil {
		return Result{}, err
	}
	return Result{Description: fmt.Sprintf("Cleared %s", description)}, nil
}

// Key is one key-press step for Press: Key is the DOM key value (e.g.
// "Enter"), Code the physical code (e.g. "Enter"); both are passed to
// Input.dispatchKeyEvent as-is.
type Key struct {
	Key  string
	Code string
}

// Press presses keys down in order, optionally holds for delay, then
// releases in reverse order, per spec.md §4.9.
func (p *Pipeline) Press(ctx context.Context, keys []Key, delay time.Duration) (Result, error) {
	for _, k := range keys {
		if err := p.Input.DispatchKeyEvent(ctx, "keyDown", k.Key, k.Code, ""); err != nil {
			return Result{}, err
		}
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := p.Input.DispatchKeyEvent(ctx, "keyUp", keys[i].Key, keys[i].Code, ""); err != nil {
			return Result{}, err
		}
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Key
	}
	return Result{Description: fmt.Sprintf("Pressed %v", names)}, nil
}

// Attach sets a file input's selected files, per spec.md §4.9's
// attach() action. sel must resolve to an <input type=file>.
func (p *Pipeline) Attach(ctx context.Context, sel selector.Selector, files []string) (Result, error) {
	matches, err := p.resolveCapped(ctx, sel)
	if err != nil {
		return Result{}, err
	}
	nodeID := matches[0].NodeID
	isFile, err := p.isFileInput(ctx, nodeID)
	if err != nil {
		return Result{}, err
	}
	if !isFile {
		return Result{}, fmt.Errorf("action: %s is not a file input", sel.Description)
	}
	if err := p.DOM.SetFileInputFiles(ctx, nodeID, files); err != nil {
		return Result{}, err
	}
	return Result{Description: fmt.Sprintf("Attached %v to %s", files, sel.Description)}, nil
}
