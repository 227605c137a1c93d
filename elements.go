package taiko

import (
	"context"
	"time"

	iselector "github.com/suziejprince/taiko/internal/selector"
)

// Element is the lazy wrapped-element capability record from spec.md
// §3: every method re-resolves sel against the current session's live
// DOM rather than caching node ids, since the underlying page may have
// mutated since the selector was constructed.
type Element struct {
	sel Selector
}

// Find returns the wrapped-element record for sel, the `$(...)` /
// `textField(...)` etc return value from spec.md §6.
func Find(sel Selector) Element { return Element{sel} }

func (e Element) resolve() (*iselector.Element, error) {
	s, err := current()
	if err != nil {
		return nil, err
	}
	h := s.browser.Handles()
	return iselector.New(h.DOM, h.Runtime, s.browser.RootNodeID(), e.sel.inner), nil
}

// Get returns the distinct node ids the selector currently resolves to,
// waiting up to iselector.DefaultGetTimeout with iselector.
// DefaultGetInterval polling if nothing matches immediately.
func (e Element) Get(ctx context.Context) ([]int, error) {
	el, err := e.resolve()
	if err != nil {
		return nil, err
	}
	matches, err := el.Get(ctx)
	if err != nil {
		return nil, notFoundOrWire(err)
	}
	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.NodeID
	}
	return ids, nil
}

// Exists reports whether the selector resolves to at least one visible
// element within timeout, polling every interval.
func (e Element) Exists(ctx context.Context, interval, timeout time.Duration) (bool, error) {
	el, err := e.resolve()
	if err != nil {
		return false, err
	}
	if interval <= 0 {
		interval = iselector.DefaultExistsInterval
	}
	if timeout <= 0 {
		timeout = iselector.DefaultExistsTimeout
	}
	return el.Exists(ctx, interval, timeout)
}

// Text returns the innerText of the first matching element.
func (e Element) Text(ctx context.Context) (string, error) {
	el, err := e.resolve()
	if err != nil {
		return "", err
	}
	texts, err := el.Text(ctx)
	if err != nil {
		return "", notFoundOrWire(err)
	}
	if len(texts) == 0 {
		return "", nil
	}
	return texts[0], nil
}

// Value returns the .value of the first matching element (input, combo
// box, text field).
func (e Element) Value(ctx context.Context) (string, error) {
	el, err := e.resolve()
	if err != nil {
		return "", err
	}
	values, err := el.Value(ctx)
	if err != nil {
		return "", notFoundOrWire(err)
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}

// IsChecked reports whether the first matching checkbox or radio button
// is checked.
func (e Element) IsChecked(ctx context.Context) (bool, error) {
	el, err := e.resolve()
	if err != nil {
		return false, err
	}
	states, err := el.IsChecked(ctx)
	if err != nil {
		return false, notFoundOrWire(err)
	}
	if len(states) == 0 {
		return false, nil
	}
	return states[0], nil
}

// IsSelected is IsChecked's name for radio buttons and combo-box
// options, kept as a distinct verb to match spec.md §3's capability
// list.
func (e Element) IsSelected(ctx context.Context) (bool, error) { return e.IsChecked(ctx) }

// Check checks the first matching checkbox or radio button.
func (e Element) Check(ctx context.Context) (Result, error) {
	el, err := e.resolve()
	if err != nil {
		return Result{}, err
	}
	if err := el.Check(ctx); err != nil {
		return Result{}, notFoundOrWire(err)
	}
	return describe("Checked"), nil
}

// Uncheck unchecks the first matching checkbox.
func (e Element) Uncheck(ctx context.Context) (Result, error) {
	el, err := e.resolve()
	if err != nil {
		return Result{}, err
	}
	if err := el.Uncheck(ctx); err != nil {
		return Result{}, notFoundOrWire(err)
	}
	return describe("Unchecked"), nil
}

// Select chooses value on the first matching combo box.
func (e Element) Select(ctx context.Context, value string) (Result, error) {
	el, err := e.resolve()
	if err != nil {
		return Result{}, err
	}
	if err := el.Select(ctx, value); err != nil {
		return Result{}, notFoundOrWire(err)
	}
	return describe("Selected %q", value), nil
}

// Deselect is Select("") for combo boxes that allow clearing their
// selection.
func (e Element) Deselect(ctx context.Context) (Result, error) { return e.Select(ctx, "") }

func notFoundOrWire(err error) error {
	var nf *iselector.NotFoundError
	if asNotFound(err, &nf) {
		return newError(ElementNotFound, nf.Error(), nil)
	}
	return newError(WireError, "resolving selector", err)
}

func asNotFound(err error, target **iselector.NotFoundError) bool {
	for err != nil {
		if nf, ok := err.(*iselector.NotFoundError); ok {
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
