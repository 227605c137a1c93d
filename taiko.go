// Package taiko is the public surface described in spec.md §6: a
// browser-automation library that attaches to a Chromium-family browser
// over the Chrome DevTools Protocol and drives it through navigation,
// element lookup, input dispatch and assertion verbs.
//
// Grounded on tomyan-hubcap's cmd/hubcap package-level Client singleton
// (one attached browser per process, per spec.md §5's "concurrent
// openBrowser calls are unsupported"), restructured around this
// module's own internal/browser.Session, internal/action.Pipeline and
// internal/intercept.Registry instead of hubcap's single *chrome.Client.
package taiko

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suziejprince/taiko/internal/action"
	"github.com/suziejprince/taiko/internal/browser"
	"github.com/suziejprince/taiko/internal/config"
	"github.com/suziejprince/taiko/internal/intercept"
	"github.com/suziejprince/taiko/internal/logging"
	"github.com/suziejprince/taiko/internal/waiter"
)

// Result is the {description, ...optional} record every successful verb
// returns, per spec.md §6.
type Result struct {
	Description string `json:"description"`
}

// Session bundles one attached browser.Session with the action pipeline
// and dialog/interception registry built on top of it.
type Session struct {
	mu        sync.Mutex
	browser   *browser.Session
	pipeline  *action.Pipeline
	intercept *intercept.Registry
	cfg       config.Config
}

var (
	globalMu sync.Mutex
	global   *Session
)

// Options configures OpenBrowser. The zero value launches headed,
// letting the OS pick a debugging port.
type Options struct {
	Headless        bool
	IgnoreSSLErrors bool
	Observe         bool
	ObserveTime     time.Duration
	Port            int
	ExecutablePath  string
	UserDataDir     string
	Args            []string
}

func (o Options) toConfigOptions() []config.Option {
	var opts []config.Option
	if o.Headless {
		opts = append(opts, config.Headless())
	}
	if o.IgnoreSSLErrors {
		opts = append(opts, config.IgnoreSSLErrors())
	}
	if o.Observe {
		opts = append(opts, config.Observe(o.ObserveTime))
	}
	if o.Port != 0 {
		opts = append(opts, config.Port(o.Port))
	}
	if o.ExecutablePath != "" {
		opts = append(opts, config.ExecutablePath(o.ExecutablePath))
	}
	if o.UserDataDir != "" {
		opts = append(opts, config.UserDataDir(o.UserDataDir))
	}
	if len(o.Args) > 0 {
		opts = append(opts, config.Args(o.Args...))
	}
	return opts
}

// OpenBrowser launches a browser, attaches to its first tab, and makes
// the result the process-wide default session every other public verb
// operates against. Per spec.md §5, a second OpenBrowser call while one
// session is already open is rejected rather than silently replacing it.
func OpenBrowser(ctx context.Context, opts Options) (Result, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return Result{}, newError(InvalidOperation, "a browser is already open; call CloseBrowser first", nil)
	}

	cfg := config.New(opts.toConfigOptions()...)
	logger, err := loggerFor(cfg)
	if err != nil {
		logger = logging.Nop()
	}

	sess, err := browser.Open(ctx, cfg, logger)
	if err != nil {
		return Result{}, newError(WireError, "opening browser", err)
	}
	if err := sess.Attach(ctx, ""); err != nil {
		sess.Close(ctx)
		return Result{}, newError(WireError, "attaching to first tab", err)
	}

	s := &Session{browser: sess, cfg: cfg}
	s.rebuildPipeline()
	s.intercept = intercept.New(sess.Bus(), sess.Handles().Fetch)
	global = s

	return Result{Description: "Browser opened"}, nil
}

func loggerFor(cfg config.Config) (*zap.Logger, error) {
	return logging.Development()
}

// rebuildPipeline (re)creates the action pipeline against the current
// attachment, called after every Attach/SwitchTo/OpenTab/CloseTab since
// each of those tears down and replaces the underlying domain handles.
func (s *Session) rebuildPipeline() {
	h := s.browser.Handles()
	s.pipeline = &action.Pipeline{
		DOM:        h.DOM,
		Runtime:    h.Runtime,
		Input:      h.Input,
		Overlay:    h.Overlay,
		Bus:        s.browser.Bus(),
		RootNodeID: s.browser.RootNodeID,
		Config: action.Config{
			ElementsToMatch:   s.cfg.ElementsToMatch,
			WaitForStart:      s.cfg.WaitForStart,
			Timeout:           s.cfg.Timeout,
			NavigationTimeout: s.cfg.NavigationTimeout,
		},
	}
}

// CloseBrowser closes the process-wide default session.
func CloseBrowser(ctx context.Context) (Result, error) {
	globalMu.Lock()
	s := global
	global = nil
	globalMu.Unlock()
	if s == nil {
		return Result{}, notInitialized()
	}
	if s.intercept != nil {
		s.intercept.Clear()
	}
	if err := s.browser.Close(ctx); err != nil {
		return Result{}, newError(WireError, "closing browser", err)
	}
	return Result{Description: "Browser closed"}, nil
}

// Client exposes the current session's underlying browser.Session, the
// low-level escape hatch spec.md §6 calls `client()`.
func Client() (*browser.Session, error) {
	s, err := current()
	if err != nil {
		return nil, err
	}
	return s.browser, nil
}

func current() (*Session, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		return nil, notInitialized()
	}
	return global, nil
}

// observeDelay sleeps ObserveTime before an action runs when the observe
// flag is set, per spec.md §5's "Observability wrapper": a debugging
// aid, not a throttle.
func (s *Session) observeDelay(ctx context.Context) {
	if !s.cfg.Observe || s.cfg.ObserveTime <= 0 {
		return
	}
	select {
	case <-time.After(s.cfg.ObserveTime):
	case <-ctx.Done():
	}
}

// awaitNavigation is a convenience used by verbs that dispatch a
// low-level domain command directly (no action.Pipeline involved) but
// still need to honor the Navigation Waiter afterward, e.g. Goto and
// Reload.
func (s *Session) awaitNavigation(ctx context.Context, cfg waiter.Config) error {
	return waiter.Await(ctx, s.browser.Bus(), cfg)
}

func describe(format string, args ...any) Result {
	return Result{Description: fmt.Sprintf(format, args...)}
}
