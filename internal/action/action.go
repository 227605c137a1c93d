// Package action implements the Action Pipeline described in spec.md
// §4.8-4.9: click and its variants, hover/focus, write/clear/press, and
// the highlight/scroll helpers, each handed off to the Navigation Waiter
// once input has been dispatched.
//
// Grounded on tomyan-hubcap's internal/chrome/input.go (mouse-event
// sequencing) and page.go (window.scrollBy/scrollTo via Runtime.evaluate
// for the scroll helpers); the occlusion check and the candidate-capping/
// first-passing-wins loop have no hubcap precedent and are built directly
// from spec.md §4.8's algorithm.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/suziejprince/taiko/internal/bus"
	"github.com/suziejprince/taiko/internal/domains"
	"github.com/suziejprince/taiko/internal/relative"
	"github.com/suziejprince/taiko/internal/selector"
	"github.com/suziejprince/taiko/internal/waiter"
)

// ErrTooManyMatches is returned when every capped candidate fails the
// occlusion check, per spec.md §7's TooManyMatches error.
var ErrTooManyMatches = fmt.Errorf("action: please provide a better selector, too many matches")

// ErrUnsupportedFileClick is returned when click() resolves to a file
// input, per spec.md §4.8 step 4.
var ErrUnsupportedFileClick = fmt.Errorf("action: unsupported operation, use attach")

// Config controls the pipeline's caps and wait budgets.
type Config struct {
	ElementsToMatch   int
	WaitForStart      time.Duration
	Timeout           time.Duration
	NavigationTimeout time.Duration
}

// DefaultConfig mirrors spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{
		ElementsToMatch:   10,
		WaitForStart:      waiter.DefaultWaitForStart,
		Timeout:           waiter.DefaultTimeout,
		NavigationTimeout: waiter.DefaultNavigationTimeout,
	}
}

// Pipeline binds the action pipeline to one attached session's domain
// adapters and event bus. RootNodeID is a live getter rather than a
// fixed value because the session re-fetches the root node id on every
// attach and target switch. The id is not refreshed on loadEventFired.
type Pipeline struct {
	DOM        *domains.DOM
	Runtime    *domains.Runtime
	Input      *domains.Input
	Overlay    *domains.Overlay
	Bus        *bus.Bus
	RootNodeID func() int
	Config     Config
}

// Result is the {description, ...} record every action returns on
// success, per spec.md §6.
type Result struct {
	Description string
}

// ClickOptions controls click/doubleClick/rightClick's dispatch and
// navigation-await behavior.
type ClickOptions struct {
	Button          domains.MouseButton
	ClickCount      int
	AwaitNavigation bool
}

func (p *Pipeline) resolveCapped(ctx context.Context, sel selector.Selector) ([]selector.Match, error) {
	matches, err := selector.Resolve(ctx, p.DOM, p.Runtime, p.RootNodeID(), sel)
	if err != nil {
		return nil, err
	}
	limit := p.Config.ElementsToMatch
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Click implements spec.md §4.8: resolve, cap, scroll each candidate
// into view, occlusion-test in order, dispatch on the first passer, then
// hand off to the Navigation Waiter.
func (p *Pipeline) Click(ctx context.Context, sel selector.Selector, opts ClickOptions) (Result, error) {
	matches, err := p.resolveCapped(ctx, sel)
	if err != nil {
		return Result{}, err
	}

	winner, x, y, err := p.firstHitTestable(ctx, matches)
	if err != nil {
		return Result{}, err
	}

	if isFileInput, err := p.isFileInput(ctx, winner.NodeID); err == nil && isFileInput {
		return Result{}, ErrUnsupportedFileClick
	}

	button := opts.Button
	if button == "" {
		button = domains.MouseButtonLeft
	}
	clickCount := opts.ClickCount
	if clickCount == 0 {
		clickCount = 1
	}

	if err := p.Input.Click(ctx, x, y, button, clickCount); err != nil {
		return Result{}, err
	}

	if err := p.await(ctx, opts.AwaitNavigation); err != nil {
		return Result{}, err
	}
	return Result{Description: fmt.Sprintf("Clicked %s", sel.Description)}, nil
}

// DoubleClick is click with clickCount=2, awaitNavigation defaulting to
// false per spec.md §4.8.
func (p *Pipeline) DoubleClick(ctx context.Context, sel selector.Selector) (Result, error) {
	return p.Click(ctx, sel, ClickOptions{ClickCount: 2})
}

// RightClick is click with button=right, awaitNavigation defaulting to
// false per spec.md §4.8.
func (p *Pipeline) RightClick(ctx context.Context, sel selector.Selector) (Result, error) {
	return p.Click(ctx, sel, ClickOptions{Button: domains.MouseButtonRight})
}

// Hover dispatches a fire-and-forget mouseMoved at the first match's
// center and still hands off to the Navigation Waiter — spec.md §9 open
// question (c) preserves this asymmetry deliberately.
func (p *Pipeline) Hover(ctx context.Context, sel selector.Selector) (Result, error) {
	matches, err := p.resolveCapped(ctx, sel)
	if err != nil {
		return Result{}, err
	}
	if err := p.DOM.ScrollIntoViewIfNeeded(ctx, matches[0].NodeID); err != nil {
		return Result{}, err
	}
	rect, err := refreshRect(ctx, p.DOM, matches[0].NodeID)
	if err != nil {
		return Result{}, err
	}
	x, y := rect.Center()
	if err := p.Input.MoveMouse(ctx, x, y); err != nil {
		return Result{}, err
	}
	if err := p.await(ctx, false); err != nil {
		return Result{}, err
	}
	return Result{Description: fmt.Sprintf("Hovered over %s", sel.Description)}, nil
}

// Highlight draws a transient box around every match, per spec.md §4.9.
func (p *Pipeline) Highlight(ctx context.Context, sel selector.Selector) (Result, error) {
	matches, err := p.resolveCapped(ctx, sel)
	if err != nil {
		return Result{}, err
	}
	color := domains.HighlightColor{R: 255, G: 0, B: 0, A: 0.3}
	for _, m := range matches {
		if err := p.Overlay.HighlightNode(ctx, m.NodeID, color); err != nil {
			return Result{}, err
		}
	}
	return Result{Description: fmt.Sprintf("Highlighted %s", sel.Description)}, nil
}

// ScrollTo scrolls the first match into view.
func (p *Pipeline) ScrollTo(ctx context.Context, sel selector.Selector) (Result, error) {
	matches, err := p.resolveCapped(ctx, sel)
	if err != nil {
		return Result{}, err
	}
	if err := p.DOM.ScrollIntoViewIfNeeded(ctx, matches[0].NodeID); err != nil {
		return Result{}, err
	}
	return Result{Description: fmt.Sprintf("Scrolled to %s", sel.Description)}, nil
}

// ScrollDirection names one of the four page-level scroll helpers.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Scroll scrolls the window by amount pixels in the given direction,
// via window.scrollBy — grounded on hubcap's page.go ScrollBy/
// ScrollToBottom/ScrollToTop, which use the same Runtime.evaluate
// technique rather than synthetic wheel events.
func (p *Pipeline) Scroll(ctx context.Context, direction ScrollDirection, amount float64) (Result, error) {
	dx, dy := 0.0, 0.0
	switch direction {
	case ScrollUp:
		dy = -amount
	case ScrollDown:
		dy = amount
	case ScrollLeft:
		dx = -amount
	case ScrollRight:
		dx = amount
	default:
		return Result{}, fmt.Errorf("action: unknown scroll direction %q", direction)
	}
	expr := fmt.Sprintf("window.scrollBy(%f, %f)", dx, dy)
	if _, err := p.Runtime.Evaluate(ctx, expr, false, true); err != nil {
		return Result{}, err
	}
	return Result{Description: fmt.Sprintf("Scrolled %s by %.0fpx", direction, amount)}, nil
}

func (p *Pipeline) await(ctx context.Context, awaitNavigation bool) error {
	cfg := waiter.Config{
		WaitForStart: p.Config.WaitForStart,
		Timeout:      p.Config.Timeout,
		RootIDReady:  func() bool { return p.RootNodeID() != 0 },
	}
	if awaitNavigation {
		cfg.Timeout = p.Config.NavigationTimeout
	}
	return waiter.Await(ctx, p.Bus, cfg)
}

// firstHitTestable implements spec.md §4.8 steps 3-4: scroll each
// candidate into view, occlusion-test at its center, return the first
// passer. Elements occluded by a sibling candidate still pass
// ("selector ambiguity tolerated").
func (p *Pipeline) firstHitTestable(ctx context.Context, matches []selector.Match) (selector.Match, float64, float64, error) {
	objectIDs := make([]string, len(matches))
	for i, m := range matches {
		objectID, err := p.DOM.ResolveNode(ctx, m.NodeID)
		if err != nil {
			return selector.Match{}, 0, 0, err
		}
		objectIDs[i] = objectID
	}
	defer func() {
		for _, id := range objectIDs {
			p.Runtime.ReleaseObject(ctx, id)
		}
	}()

	for i, m := range matches {
		if err := p.DOM.ScrollIntoViewIfNeeded(ctx, m.NodeID); err != nil {
			continue
		}
		rect, err := refreshRect(ctx, p.DOM, m.NodeID)
		if err != nil {
			continue
		}
		x, y := rect.Center()

		hit, err := occludes(ctx, p.Runtime, objectIDs[i], x, y)
		if err != nil {
			continue
		}
		if !hit {
			for j, other := range objectIDs {
				if j == i {
					continue
				}
				if hit2, err := occludes(ctx, p.Runtime, other, x, y); err == nil && hit2 {
					hit = true
					break
				}
			}
		}
		if hit {
			return m, x, y, nil
		}
	}
	return selector.Match{}, 0, 0, ErrTooManyMatches
}

// occlusionProbe implements the pass condition from spec.md §4.8 step 3:
// the point's top element is the candidate, a descendant of it, or
// effectively transparent (opacity < 0.1, tolerated as a hit-transparent
// overlay).
const occlusionProbe = `function(x, y) {
	var el = document.elementFromPoint(x, y);
	if (!el) return false;
	if (el === this || this.contains(el)) return true;
	var opacity = parseFloat(window.getComputedStyle(el).opacity || "1");
	return opacity < 0.1;
}`

func occludes(ctx context.Context, rt *domains.Runtime, objectID string, x, y float64) (bool, error) {
	result, err := rt.CallFunctionOn(ctx, objectID, occlusionProbe, []any{x, y}, true)
	if err != nil {
		return false, err
	}
	var hit bool
	if err := json.Unmarshal(result.Value, &hit); err != nil {
		return false, fmt.Errorf("action: decoding occlusion probe result: %w", err)
	}
	return hit, nil
}

func (p *Pipeline) isFileInput(ctx context.Context, nodeID int) (bool, error) {
	attrs, err := p.DOM.GetAttributes(ctx, nodeID)
	if err != nil {
		return false, err
	}
	for _, a := range attrs {
		if a.Name == "type" && a.Value == "file" {
			return true, nil
		}
	}
	return false, nil
}

func refreshRect(ctx context.Context, dom *domains.DOM, nodeID int) (relative.Rectangle, error) {
	box, err := dom.GetBoxModel(ctx, nodeID)
	if err != nil {
		return relative.Rectangle{}, err
	}
	if len(box.Border) < 8 {
		return relative.Rectangle{}, fmt.Errorf("action: node %d has no box geometry", nodeID)
	}
	return relative.Rectangle{
		Left:   box.Border[0],
		Top:    box.Border[1],
		Right:  box.Border[4],
		Bottom: box.Border[5],
	}, nil
}
