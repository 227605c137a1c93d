package taiko

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/suziejprince/taiko/internal/action"
	iselector "github.com/suziejprince/taiko/internal/selector"
)

// ClickOptions configures Click's dispatch and navigation-await
// behavior, per spec.md §4.8. DoubleClick and RightClick take no options.
type ClickOptions struct {
	AwaitNavigation bool
}

func fromActionResult(r action.Result) Result { return Result{Description: r.Description} }

// mapActionErr translates the internal/action sentinels and selector
// not-found errors into spec.md §7's typed taxonomy; anything else is
// wrapped as WireError.
func mapActionErr(message string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, action.ErrTooManyMatches):
		return newError(TooManyMatches, err.Error(), nil)
	case errors.Is(err, action.ErrUnsupportedFileClick):
		return newError(InvalidOperation, err.Error(), nil)
	case errors.Is(err, action.ErrNotWritable):
		return newError(InvalidOperation, err.Error(), nil)
	}
	var nf *iselector.NotFoundError
	if asNotFound(err, &nf) {
		return newError(ElementNotFound, nf.Error(), nil)
	}
	return newError(WireError, message, err)
}

// Click clicks the first occlusion-passing candidate sel resolves to,
// per spec.md §4.8.
func Click(ctx context.Context, sel Selector, opts ClickOptions) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	r, err := s.pipeline.Click(ctx, sel.inner, action.ClickOptions{AwaitNavigation: opts.AwaitNavigation})
	if err != nil {
		return Result{}, mapActionErr("clicking element", err)
	}
	return fromActionResult(r), nil
}

// DoubleClick double-clicks the first occlusion-passing candidate.
func DoubleClick(ctx context.Context, sel Selector) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	r, err := s.pipeline.DoubleClick(ctx, sel.inner)
	if err != nil {
		return Result{}, mapActionErr("double-clicking element", err)
	}
	return fromActionResult(r), nil
}

// RightClick right-clicks the first occlusion-passing candidate.
func RightClick(ctx context.Context, sel Selector) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	r, err := s.pipeline.RightClick(ctx, sel.inner)
	if err != nil {
		return Result{}, mapActionErr("right-clicking element", err)
	}
	return fromActionResult(r), nil
}

// Hover moves the mouse over the first match without clicking.
func Hover(ctx context.Context, sel Selector) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	r, err := s.pipeline.Hover(ctx, sel.inner)
	if err != nil {
		return Result{}, mapActionErr("hovering over element", err)
	}
	return fromActionResult(r), nil
}

// Focus focuses the first match.
func Focus(ctx context.Context, sel Selector) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	r, err := s.pipeline.Focus(ctx, sel.inner)
	if err != nil {
		return Result{}, mapActionErr("focusing element", err)
	}
	return fromActionResult(r), nil
}

// Highlight draws a transient box around every match, per spec.md §4.9.
func Highlight(ctx context.Context, sel Selector) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	r, err := s.pipeline.Highlight(ctx, sel.inner)
	if err != nil {
		return Result{}, mapActionErr("highlighting element", err)
	}
	return fromActionResult(r), nil
}

// ScrollTo scrolls the first match into view.
func ScrollTo(ctx context.Context, sel Selector) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	r, err := s.pipeline.ScrollTo(ctx, sel.inner)
	if err != nil {
		return Result{}, mapActionErr("scrolling to element", err)
	}
	return fromActionResult(r), nil
}

const defaultScrollAmount = 100.0

func scroll(ctx context.Context, direction action.ScrollDirection, amount float64) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	if amount == 0 {
		amount = defaultScrollAmount
	}
	r, err := s.pipeline.Scroll(ctx, direction, amount)
	if err != nil {
		return Result{}, mapActionErr("scrolling window", err)
	}
	return fromActionResult(r), nil
}

// ScrollRight scrolls the window right by amount pixels (0 uses a
// default step), per spec.md §4.9's scrollRight() helper.
func ScrollRight(ctx context.Context, amount float64) (Result, error) {
	return scroll(ctx, action.ScrollRight, amount)
}

// ScrollLeft scrolls the window left by amount pixels.
func ScrollLeft(ctx context.Context, amount float64) (Result, error) {
	return scroll(ctx, action.ScrollLeft, amount)
}

// ScrollUp scrolls the window up by amount pixels.
func ScrollUp(ctx context.Context, amount float64) (Result, error) {
	return scroll(ctx, action.ScrollUp, amount)
}

// ScrollDown scrolls the window down by amount pixels.
func ScrollDown(ctx context.Context, amount float64) (Result, error) {
	return scroll(ctx, action.ScrollDown, amount)
}

// WriteOptions configures Write.
type WriteOptions struct {
	Into  *IntoOption
	Delay time.Duration
}

// Write types text into the element named by opts.Into, or the
// already-focused element when opts.Into is nil, per spec.md §4.9.
func Write(ctx context.Context, text string, opts WriteOptions) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	aopts := action.WriteOptions{Delay: opts.Delay}
	if opts.Into != nil {
		aopts.Into = &opts.Into.sel.inner
	}
	r, err := s.pipeline.Write(ctx, text, aopts)
	if err != nil {
		return Result{}, mapActionErr("writing text", err)
	}
	return fromActionResult(r), nil
}

// Clear deletes the contents of sel's first match, or the already-
// focused element when sel is nil.
func Clear(ctx context.Context, sel *Selector) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	var inner *iselector.Selector
	if sel != nil {
		inner = &sel.inner
	}
	r, err := s.pipeline.Clear(ctx, inner)
	if err != nil {
		return Result{}, mapActionErr("clearing field", err)
	}
	return fromActionResult(r), nil
}

// KeyPress is one key-press step for Press.
type KeyPress struct {
	Key  string
	Code string
}

// Press presses keys in order, optionally holds for delay, then
// releases in reverse order, per spec.md §4.9.
func Press(ctx context.Context, keys []KeyPress, delay time.Duration) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	aKeys := make([]action.Key, len(keys))
	for i, k := range keys {
		aKeys[i] = action.Key{Key: k.Key, Code: k.Code}
	}
	r, err := s.pipeline.Press(ctx, aKeys, delay)
	if err != nil {
		return Result{}, mapActionErr("pressing keys", err)
	}
	return fromActionResult(r), nil
}

// Attach sets sel's file input to files, per spec.md §4.9. Every path is
// checked against the filesystem first, since the renderer process has
// no way to report a missing path back as a CDP error.
func Attach(ctx context.Context, sel Selector, files []string) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return Result{}, newError(FileNotFound, "attach: "+f, err)
		}
	}
	r, err := s.pipeline.Attach(ctx, sel.inner, files)
	if err != nil {
		return Result{}, mapActionErr("attaching files", err)
	}
	return fromActionResult(r), nil
}
