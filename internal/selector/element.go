package selector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/suziejprince/taiko/internal/domains"
)

// DefaultExistsInterval and DefaultExistsTimeout back exists(), per
// spec.md §4.6. DefaultGetInterval and DefaultGetTimeout back get(),
// which polls with the same values under its own names.
const (
	DefaultExistsInterval = 1 * time.Second
	DefaultExistsTimeout  = 10 * time.Second
	DefaultGetInterval    = 1 * time.Second
	DefaultGetTimeout     = 10 * time.Second
)

// Element is the wrapped-element capability record from spec.md §3: a
// lazy handle over a selector that re-resolves on every call rather than
// caching node ids, since the underlying DOM may have changed between
// an exists() check and a later get().
type Element struct {
	DOM        *domains.DOM
	Runtime    *domains.Runtime
	RootNodeID int
	Selector   Selector
}

// New wraps sel as a lazy Element bound to the given session's DOM and
// Runtime adapters.
func New(dom *domains.DOM, rt *domains.Runtime, rootNodeID int, sel Selector) *Element {
	return &Element{DOM: dom, Runtime: rt, RootNodeID: rootNodeID, Selector: sel}
}

// Get returns every currently visible match, polling with
// DefaultGetInterval/DefaultGetTimeout until at least one match appears
// or the timeout elapses, per spec.md §4.6's "get() uses the same
// polling with defaults {1000ms, 10000ms}".
func (e *Element) Get(ctx context.Context) ([]Match, error) {
	return e.poll(ctx, DefaultGetInterval, DefaultGetTimeout)
}

// Exists polls resolution until at least one match or timeout, per
// spec.md §4.6.
func (e *Element) Exists(ctx context.Context, interval, timeout time.Duration) (bool, error) {
	_, err := e.poll(ctx, interval, timeout)
	if err == nil {
		return true, nil
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

func (e *Element) poll(ctx context.Context, interval, timeout time.Duration) ([]Match, error) {
	deadline := time.Now().Add(timeout)
	for {
		matches, err := Resolve(ctx, e.DOM, e.Runtime, e.RootNodeID, e.Selector)
		if err == nil {
			return matches, nil
		}
		var notFound *NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Text returns the innerText of every match, per spec.md §4.6.
func (e *Element) Text(ctx context.Context) ([]string, error) {
	return e.stringProperty(ctx, "innerText")
}

// Value returns the value property of every match — input, combo box,
// file, and text field selectors expose this per spec.md §3's
// value() extra.
func (e *Element) Value(ctx context.Context) ([]string, error) {
	return e.stringProperty(ctx, "value")
}

func (e *Element) stringProperty(ctx context.Context, property string) ([]string, error) {
	matches, err := e.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		v, err := e.readProperty(ctx, m.NodeID, property)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Element) readProperty(ctx context.Context, nodeID int, property string) (string, error) {
	objectID, err := e.DOM.ResolveNode(ctx, nodeID)
	if err != nil {
		return "", err
	}
	defer e.Runtime.ReleaseObject(ctx, objectID)

	fn := `function() { return String(this["` + property + `"] ?? ""); }`
	result, err := e.Runtime.CallFunctionOn(ctx, objectID, fn, nil, true)
	if err != nil {
		return "", err
	}
	var s string
	if result == nil {
		return "", fmt.Errorf("selector: nil result reading %s", property)
	}
	if err := json.Unmarshal(result.Value, &s); err != nil {
		return "", fmt.Errorf("selector: decoding %s: %w", property, err)
	}
	return s, nil
}

// IsChecked reports the checked state of every match — checkBox and
// radioButton selectors expose this per spec.md §3's isChecked extra.
func (e *Element) IsChecked(ctx context.Context) ([]bool, error) {
	matches, err := e.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, len(matches))
	for _, m := range matches {
		checked, err := e.boolProperty(ctx, m.NodeID, "checked")
		if err != nil {
			return nil, err
		}
		out = append(out, checked)
	}
	return out, nil
}

func (e *Element) boolProperty(ctx context.Context, nodeID int, property string) (bool, error) {
	objectID, err := e.DOM.ResolveNode(ctx, nodeID)
	if err != nil {
		return false, err
	}
	defer e.Runtime.ReleaseObject(ctx, objectID)

	fn := `function() { return !!this["` + property + `"]; }`
	result, err := e.Runtime.CallFunctionOn(ctx, objectID, fn, nil, true)
	if err != nil {
		return false, err
	}
	var b bool
	if err := unmarshalBool(result, &b); err != nil {
		return false, err
	}
	return b, nil
}

// Check sets the first match's checked state to true, per spec.md §3's
// check() extra for checkBox/radioButton selectors.
func (e *Element) Check(ctx context.Context) error {
	return e.setChecked(ctx, true)
}

// Uncheck sets the first match's checked state to false.
func (e *Element) Uncheck(ctx context.Context) error {
	return e.setChecked(ctx, false)
}

func (e *Element) setChecked(ctx context.Context, checked bool) error {
	matches, err := e.Get(ctx)
	if err != nil {
		return err
	}
	nodeID := matches[0].NodeID
	objectID, err := e.DOM.ResolveNode(ctx, nodeID)
	if err != nil {
		return err
	}
	defer e.Runtime.ReleaseObject(ctx, objectID)

	fn := `function(v) { this.checked = v; this.dispatchEvent(new Event('change', {bubbles: true})); }`
	_, err = e.Runtime.CallFunctionOn(ctx, objectID, fn, []any{checked}, true)
	return err
}

// Select sets the first match's value and fires a change event, per
// spec.md §3's select(value) extra for comboBox selectors.
func (e *Element) Select(ctx context.Context, value string) error {
	matches, err := e.Get(ctx)
	if err != nil {
		return err
	}
	nodeID := matches[0].NodeID
	objectID, err := e.DOM.ResolveNode(ctx, nodeID)
	if err != nil {
		return err
	}
	defer e.Runtime.ReleaseObject(ctx, objectID)

	fn := `function(v) { this.value = v; this.dispatchEvent(new Event('change', {bubbles: true})); }`
	_, err = e.Runtime.CallFunctionOn(ctx, objectID, fn, []any{value}, true)
	return err
}

