// Package domains is the thin per-domain adapter layer described in
// spec.md §4.3: one type per enabled CDP domain (Page, DOM, Runtime,
// Network, Input, Target, Overlay, Security, Emulation), each issuing the
// handful of commands the rest of the coordination layer needs and
// subscribing to the domain's events to republish them on the Event Bus
// under the canonical bus-event names from spec.md's table.
//
// Domain adapters do not decide *when* to wait for anything; that is the
// Navigation Waiter's job (package waiter). They only translate.
package domains

import (
	"context"
	"encoding/json"

	"github.com/suziejprince/taiko/internal/cdpwire"
)

// sessionDomain is embedded by every domain adapter that is scoped to a
// single attached target session (everything except Target, which is
// issued on the browser-level connection per spec.md §4.1).
type sessionDomain struct {
	wire      *cdpwire.Client
	sessionID string
}

func (d sessionDomain) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return d.wire.CallSession(ctx, d.sessionID, method, params)
}

func (d sessionDomain) subscribe(method string) chan json.RawMessage {
	return d.wire.Subscribe(d.sessionID, method)
}

func (d sessionDomain) unsubscribe(method string, ch chan json.RawMessage) {
	d.wire.Unsubscribe(d.sessionID, method, ch)
}

// Handles bundles one adapter per enabled domain for a single attached
// target session, matching the "domain handles" Session.CDPClient exposes
// per spec.md §3.
type Handles struct {
	Page      *Page
	DOM       *DOM
	Runtime   *Runtime
	Network   *Network
	Input     *Input
	Overlay   *Overlay
	Security  *Security
	Emulation *Emulation
	Fetch     *Fetch
}

// NewHandles builds the full set of domain adapters for one attached
// target session.
func NewHandles(wire *cdpwire.Client, sessionID string) *Handles {
	sd := sessionDomain{wire: wire, sessionID: sessionID}
	return &Handles{
		Page:      &Page{sd},
		DOM:       &DOM{sd},
		Runtime:   &Runtime{sd},
		Network:   &Network{sd},
		Input:     &Input{sd},
		Overlay:   &Overlay{sd},
		Security:  &Security{sd},
		Emulation: &Emulation{sd},
		Fetch:     &Fetch{sd},
	}
}

// EnableAll enables every domain this Handles wraps, covering the
// "enable Network, Page, DOM, Overlay, Security domains in parallel" step
// of spec.md §4.1's attach operation, plus Runtime so that
// consoleAPICalled/exceptionThrown deliver for the OnConsoleMessage/
// OnException supplement. Input and Emulation need no explicit enable
// call for the commands this library issues against them. Fetch is
// enabled lazily by package intercept only once an interceptor is
// registered, since request interception is opt-in and paused requests
// must always be resolved by a handler.
//
// Calls are issued sequentially, not concurrently; see DESIGN.md for why.
func (h *Handles) EnableAll(ctx context.Context) error {
	type enabler interface{ Enable(context.Context) error }
	for _, e := range []enabler{h.Page, h.DOM, h.Network, h.Overlay, h.Security, h.Runtime} {
		if err := e.Enable(ctx); err != nil {
			return err
		}
	}
	return nil
}
