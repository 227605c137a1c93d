package taiko

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/suziejprince/taiko/internal/waiter"
)

// GotoOptions configures Goto.
type GotoOptions struct {
	Timeout time.Duration
	Headers map[string]string // reserved: CDP Page.navigate has no header override; see DESIGN.md
}

// Goto navigates the current tab to url, waiting for the page to settle
// before returning, matching spec.md §4.1/§6's `goto(url, {timeout,
// headers})`.
func Goto(ctx context.Context, url string, opts GotoOptions) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)

	url = normalizeURL(url)
	page := s.browser.Handles().Page
	if _, err := page.Navigate(ctx, url); err != nil {
		return Result{}, newError(NavigationFailed, fmt.Sprintf("navigation to url %q failed", url), err)
	}

	cfg := waiter.NavigationConfig()
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	} else if s.cfg.NavigationTimeout > 0 {
		cfg.Timeout = s.cfg.NavigationTimeout
	}
	cfg.RootIDReady = func() bool { return s.browser.RootNodeID() != 0 }
	if err := s.awaitNavigation(ctx, cfg); err != nil {
		if _, ok := err.(*waiter.TimeoutError); ok {
			return Result{}, newError(NavigationTimeout, err.Error(), nil)
		}
		return Result{}, newError(WireError, "waiting for navigation", err)
	}

	return Result{Description: fmt.Sprintf("Navigated to url %q", url)}, nil
}

func normalizeURL(raw string) string {
	if raw == "" {
		return raw
	}
	for _, prefix := range []string{"http://", "https://", "file://"} {
		if len(raw) >= len(prefix) && raw[:len(prefix)] == prefix {
			return raw
		}
	}
	return "http://" + raw
}

// Reload reloads the current tab. The url parameter is accepted for
// spec.md §6 signature compatibility but ignored; see DESIGN.md's Open
// Question decision (b).
func Reload(ctx context.Context, url string) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	if err := s.browser.Handles().Page.Reload(ctx, false); err != nil {
		return Result{}, newError(WireError, "reloading page", err)
	}

	cfg := waiter.NavigationConfig()
	cfg.RootIDReady = func() bool { return s.browser.RootNodeID() != 0 }
	if err := s.awaitNavigation(ctx, cfg); err != nil {
		return Result{}, newError(WireError, "waiting for reload", err)
	}
	return Result{Description: "Reloaded the page"}, nil
}

// Title returns the current page's <title> text.
func Title(ctx context.Context) (string, error) {
	s, err := current()
	if err != nil {
		return "", err
	}
	result, err := s.browser.Handles().Runtime.Evaluate(ctx, "document.title", false, true)
	if err != nil {
		return "", newError(WireError, "reading document title", err)
	}
	var title string
	if err := jsonUnmarshalInto(result.Value, &title); err != nil {
		return "", newError(WireError, "decoding document title", err)
	}
	return title, nil
}

// ScreenshotOptions configures Screenshot.
type ScreenshotOptions struct {
	Path     string // defaults to Screenshot-<unixMs>.png in cwd
	Encoding bool   // when true, return the base64-less PNG buffer instead of writing a file
}

// ScreenshotResult carries the optional encoded buffer alongside the
// usual description.
type ScreenshotResult struct {
	Result
	Path string `json:"path,omitempty"`
	Data []byte `json:"-"`
}

// Screenshot captures the current tab, per spec.md §6's `screenshot(
// {path|encoding})`.
func Screenshot(ctx context.Context, opts ScreenshotOptions, now time.Time) (ScreenshotResult, error) {
	s, err := current()
	if err != nil {
		return ScreenshotResult{}, err
	}
	data, err := s.browser.Handles().Page.CaptureScreenshot(ctx)
	if err != nil {
		return ScreenshotResult{}, newError(WireError, "capturing screenshot", err)
	}
	if opts.Encoding {
		return ScreenshotResult{Result: describe("Screenshot captured"), Data: data}, nil
	}

	path := opts.Path
	if path == "" {
		path = fmt.Sprintf("Screenshot-%d.png", now.UnixMilli())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ScreenshotResult{}, newError(WireError, "writing screenshot file", err)
	}
	return ScreenshotResult{Result: describe("Screenshot saved to %s", path), Path: path}, nil
}

// SwitchTo re-attaches to the target whose URL or title exactly matches
// urlOrTitle.
func SwitchTo(ctx context.Context, urlOrTitle string) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	if err := s.browser.SwitchTo(ctx, urlOrTitle); err != nil {
		return Result{}, newError(WireError, "switching target", err)
	}
	s.mu.Lock()
	s.rebuildPipeline()
	s.mu.Unlock()
	return describe("Switched to %q", urlOrTitle), nil
}

// OpenTabOptions configures OpenTab.
type OpenTabOptions struct {
	Timeout time.Duration
}

// OpenTab opens url in a new tab and attaches to it.
func OpenTab(ctx context.Context, url string, opts OpenTabOptions) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := s.browser.OpenTab(ctx, url); err != nil {
		return Result{}, newError(WireError, "opening tab", err)
	}
	s.mu.Lock()
	s.rebuildPipeline()
	s.mu.Unlock()
	return describe("Opened tab %q", url), nil
}

// CloseTab closes the tab at url, or the current tab if url is empty.
func CloseTab(ctx context.Context, url string) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	s.observeDelay(ctx)
	closedBrowser, err := s.browser.CloseTab(ctx, url)
	if err != nil {
		return Result{}, newError(WireError, "closing tab", err)
	}
	if closedBrowser {
		if s.intercept != nil {
			s.intercept.Clear()
		}
		globalMu.Lock()
		if global == s {
			global = nil
		}
		globalMu.Unlock()
		return Result{Description: "Closing last target and browser."}, nil
	}
	s.mu.Lock()
	s.rebuildPipeline()
	s.mu.Unlock()
	return describe("Closed tab"), nil
}

// SetViewPort changes the emulated viewport size of the current tab.
func SetViewPort(ctx context.Context, width, height int) (Result, error) {
	s, err := current()
	if err != nil {
		return Result{}, err
	}
	err = s.browser.Handles().Emulation.SetDeviceMetricsOverride(ctx, deviceMetricsFor(width, height))
	if err != nil {
		return Result{}, newError(WireError, "setting viewport", err)
	}
	return describe("Viewport set to %dx%d", width, height), nil
}
