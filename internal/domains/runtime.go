package domains

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suziejprince/taiko/internal/bus"
)

// Runtime wraps the CDP Runtime domain. Grounded on the Runtime.evaluate
// and Runtime.callFunctionOn usage scattered through tomyan-hubcap's
// internal/chrome/query.go (visibility checks via offsetParent,
// getBoundingClientRect reads) and dom_helpers.go.
type Runtime struct {
	sessionDomain
}

// Enable turns on the Runtime domain for this session.
func (r *Runtime) Enable(ctx context.Context) error {
	_, err := r.call(ctx, "Runtime.enable", nil)
	return err
}

// RemoteValue is the subset of Runtime.RemoteObject this library reads
// back from Evaluate/CallFunctionOn calls.
type RemoteValue struct {
	Type        string          `json:"type"`
	Subtype     string          `json:"subtype"`
	Value       json.RawMessage `json:"value"`
	ObjectID    string          `json:"objectId"`
	Description string          `json:"description"`
}

// Evaluate runs expression in the page's main context and returns the
// resulting remote value. awaitPromise mirrors Runtime.evaluate's
// awaitPromise flag, used by waitForFunction-style polling predicates.
func (r *Runtime) Evaluate(ctx context.Context, expression string, awaitPromise, returnByValue bool) (*RemoteValue, error) {
	raw, err := r.call(ctx, "Runtime.evaluate", struct {
		Expression    string `json:"expression"`
		AwaitPromise  bool   `json:"awaitPromise"`
		ReturnByValue bool   `json:"returnByValue"`
	}{expression, awaitPromise, returnByValue})
	if err != nil {
		return nil, err
	}
	var result struct {
		Result           RemoteValue `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding Runtime.evaluate result: %w", err)
	}
	if result.ExceptionDetails != nil {
		return nil, fmt.Errorf("domains: evaluate threw: %s", result.ExceptionDetails.Text)
	}
	return &result.Result, nil
}

// CallFunctionOn invokes functionDeclaration with objectID bound to `this`,
// the mechanism the action pipeline and selector engine use to run DOM
// probes against a specific resolved element.
func (r *Runtime) CallFunctionOn(ctx context.Context, objectID, functionDeclaration string, args []any, returnByValue bool) (*RemoteValue, error) {
	callArgs := make([]struct {
		Value any `json:"value"`
	}, len(args))
	for i, a := range args {
		callArgs[i].Value = a
	}

	raw, err := r.call(ctx, "Runtime.callFunctionOn", struct {
		FunctionDeclaration string `json:"functionDeclaration"`
		ObjectID            string `json:"objectId"`
		Arguments           []struct {
			Value any `json:"value"`
		} `json:"arguments"`
		ReturnByValue bool `json:"returnByValue"`
	}{functionDeclaration, objectID, callArgs, returnByValue})
	if err != nil {
		return nil, err
	}
	var result struct {
		Result           RemoteValue `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("domains: decoding Runtime.callFunctionOn result: %w", err)
	}
	if result.ExceptionDetails != nil {
		return nil, fmt.Errorf("domains: callFunctionOn threw: %s", result.ExceptionDetails.Text)
	}
	return &result.Result, nil
}

// ReleaseObject frees a remote object handle returned by Evaluate or
// CallFunctionOn when returnByValue was false.
func (r *Runtime) ReleaseObject(ctx context.Context, objectID string) error {
	_, err := r.call(ctx, "Runtime.releaseObject", struct {
		ObjectID string `json:"objectId"`
	}{objectID})
	return err
}

// Subscribe forwards Runtime.consoleAPICalled as bus.KindConsoleMessage
// and Runtime.exceptionThrown as bus.KindException, grounded on hubcap's
// CaptureConsole/CaptureExceptions subscriptions. Returns a stop function
// that must be called on every exit path.
func (r *Runtime) Subscribe(b *bus.Bus, targetID string) (stop func()) {
	consoleCh := r.subscribe("Runtime.consoleAPICalled")
	exceptionCh := r.subscribe("Runtime.exceptionThrown")
	done := make(chan struct{})

	go func() {
		for {
			select {
			case raw, ok := <-consoleCh:
				if !ok {
					return
				}
				var ev struct {
					Type string `json:"type"`
					Args []struct {
						Value json.RawMessage `json:"value"`
					} `json:"args"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				text := ""
				for i, a := range ev.Args {
					if i > 0 {
						text += " "
					}
					text += string(a.Value)
				}
				b.Publish(bus.Event{Kind: bus.KindConsoleMessage, Payload: bus.ConsoleMessagePayload{
					TargetID: targetID, Type: ev.Type, Text: text,
				}})
			case raw, ok := <-exceptionCh:
				if !ok {
					return
				}
				var ev struct {
					ExceptionDetails struct {
						Text string `json:"text"`
					} `json:"exceptionDetails"`
				}
				if err := json.Unmarshal(raw, &ev); err != nil {
					continue
				}
				b.Publish(bus.Event{Kind: bus.KindException, Payload: bus.ExceptionPayload{
					TargetID: targetID, Text: ev.ExceptionDetails.Text,
				}})
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		r.unsubscribe("Runtime.consoleAPICalled", consoleCh)
		r.unsubscribe("Runtime.exceptionThrown", exceptionCh)
	}
}
