package taiko

import (
	"context"

	"github.com/suziejprince/taiko/internal/domains"
	"github.com/suziejprince/taiko/internal/intercept"
)

// Dialog is the accept()/dismiss() capability handed to an
// AlertHandler/ConfirmHandler/PromptHandler, per spec.md §4.10.
type Dialog struct {
	Message string
	accept  func(promptText string) error
	dismiss func() error
}

// Accept accepts the dialog, optionally filling a prompt's text field.
func (d Dialog) Accept(promptText string) error { return d.accept(promptText) }

// Dismiss cancels the dialog.
func (d Dialog) Dismiss() error { return d.dismiss() }

func toDialog(in intercept.Dialog) Dialog {
	return Dialog{Message: in.Message, accept: in.Accept, dismiss: in.Dismiss}
}

// OnAlert registers handler for every window.alert() whose message
// exactly matches message, or any alert when message is "".
func OnAlert(message string, handler func(Dialog)) error {
	s, err := current()
	if err != nil {
		return err
	}
	s.intercept.OnDialog("alert", message, func(ctx context.Context, d intercept.Dialog) { handler(toDialog(d)) })
	return nil
}

// OnConfirm registers handler for every window.confirm() whose message
// exactly matches message, or any confirm when message is "".
func OnConfirm(message string, handler func(Dialog)) error {
	s, err := current()
	if err != nil {
		return err
	}
	s.intercept.OnDialog("confirm", message, func(ctx context.Context, d intercept.Dialog) { handler(toDialog(d)) })
	return nil
}

// OnPrompt registers handler for every window.prompt() whose message
// exactly matches message, or any prompt when message is "".
func OnPrompt(message string, handler func(Dialog)) error {
	s, err := current()
	if err != nil {
		return err
	}
	s.intercept.OnDialog("prompt", message, func(ctx context.Context, d intercept.Dialog) { handler(toDialog(d)) })
	return nil
}

// OnBeforeUnload registers handler for the page's beforeunload dialog.
func OnBeforeUnload(handler func(Dialog)) error {
	s, err := current()
	if err != nil {
		return err
	}
	s.intercept.OnDialog("beforeunload", "", func(ctx context.Context, d intercept.Dialog) { handler(toDialog(d)) })
	return nil
}

// InterceptAction discriminates how Intercept resolves a matched
// request, per spec.md §3's Interceptor record.
type InterceptAction = intercept.InterceptAction

const (
	Block        = intercept.ActionBlock
	MockResponse = intercept.ActionMockResponse
	Redirect     = intercept.ActionRedirect
	Rewrite      = intercept.ActionRewrite
)

// RequestHandle is the object a Rewriter callback receives.
type RequestHandle = intercept.RequestHandle

// Mock describes a synthetic response body for a MockResponse
// interceptor.
type Mock = domains.MockResponse

// Interceptor is one registered network-interception rule, per spec.md
// §4.10.
type Interceptor struct {
	URLPattern string
	Action     InterceptAction
	Mock       Mock
	RedirectTo string
	Rewriter   func(ctx context.Context, req *RequestHandle)
}

// Intercept registers interceptor against the current session's network
// traffic, enabling request interception on first use.
func Intercept(ctx context.Context, interceptor Interceptor) error {
	s, err := current()
	if err != nil {
		return err
	}
	return s.intercept.Intercept(ctx, intercept.Interceptor{
		URLPattern: interceptor.URLPattern,
		Action:     interceptor.Action,
		Mock:       interceptor.Mock,
		RedirectTo: interceptor.RedirectTo,
		Rewriter:   interceptor.Rewriter,
	})
}
