package taiko

import (
	"context"
	"encoding/json"
	"time"

	"github.com/suziejprince/taiko/internal/domains"
)

func jsonUnmarshalInto(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func deviceMetricsFor(width, height int) domains.DeviceMetrics {
	return domains.DeviceMetrics{Width: width, Height: height, DeviceScaleFactor: 1, Mobile: false}
}

// Evaluate runs expression in the current page's main context and
// returns the JSON-decoded result value, per spec.md §6's `evaluate`
// helper.
func Evaluate(ctx context.Context, expression string) (any, error) {
	s, err := current()
	if err != nil {
		return nil, err
	}
	result, err := s.browser.Handles().Runtime.Evaluate(ctx, expression, true, true)
	if err != nil {
		return nil, newError(WireError, "evaluating expression", err)
	}
	var value any
	if err := jsonUnmarshalInto(result.Value, &value); err != nil {
		return nil, newError(WireError, "decoding evaluate result", err)
	}
	return value, nil
}

// WaitOption configures WaitFor, IntervalSecs and TimeoutSecs are the
// `intervalSecs`/`timeoutSecs` helpers from spec.md §6.
type WaitOption func(*waitOpts)

type waitOpts struct {
	interval time.Duration
	timeout  time.Duration
}

// IntervalSecs sets the polling interval, in seconds, for WaitFor.
func IntervalSecs(seconds float64) WaitOption {
	return func(o *waitOpts) { o.interval = time.Duration(seconds * float64(time.Second)) }
}

// TimeoutSecs sets the deadline, in seconds, for WaitFor.
func TimeoutSecs(seconds float64) WaitOption {
	return func(o *waitOpts) { o.timeout = time.Duration(seconds * float64(time.Second)) }
}

// WaitFor blocks until sel resolves to a visible element, or returns an
// ElementNotFound error once the deadline elapses, per spec.md §6's
// `waitFor` helper.
func WaitFor(ctx context.Context, sel Selector, opts ...WaitOption) (Result, error) {
	o := waitOpts{interval: 1 * time.Second, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	ok, err := Find(sel).Exists(ctx, o.interval, o.timeout)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, newError(ElementNotFound, "element did not appear before the deadline", nil)
	}
	return describe("Waited for element"), nil
}

// IntoOption names the element write() targets, per spec.md §6's `into`
// helper.
type IntoOption struct{ sel Selector }

// Into marks sel as the target field for Write, equivalent to focusing
// it first.
func Into(sel Selector) IntoOption { return IntoOption{sel} }

// ToOption names the destination selector for verbs that accept one,
// spec.md §6's `to` helper.
type ToOption struct{ sel Selector }

// To wraps a destination selector, used by ScrollTo and future
// destination-taking verbs.
func To(sel Selector) ToOption { return ToOption{sel} }

// ScrollTo scrolls t's wrapped selector into view, the `scrollTo(to(sel))`
// spelling from spec.md §6.
func (t ToOption) ScrollTo(ctx context.Context) (Result, error) { return ScrollTo(ctx, t.sel) }
