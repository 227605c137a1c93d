// Package config holds the Session's assembled settings: defaults, then
// TAIKO_* environment overrides, then explicit functional options, in
// that order — the precedence chain from
// theRebelliousNerd-codenerd's internal/config.applyEnvOverrides, applied
// here to a flat struct in the shape of tomyan-hubcap's
// cmd/hubcap.Config/Profile.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is every tunable the Session Manager, Navigation Waiter and
// Network-Idle Tracker read from. JSON tags match the field names a
// persisted cmd/taiko profile would use.
type Config struct {
	Headless        bool          `json:"headless"`
	IgnoreSSLErrors bool          `json:"ignoreSSLErrors"`
	Observe         bool          `json:"observe"`
	ObserveTime     time.Duration `json:"observeTime"`

	Host           string `json:"host"`
	Port           int    `json:"port"`
	ExecutablePath string `json:"executablePath"`
	UserDataDir    string `json:"userDataDir"`

	WaitForStart      time.Duration `json:"waitForStart"`
	Timeout           time.Duration `json:"timeout"`
	NavigationTimeout time.Duration `json:"navigationTimeout"`
	NetworkIdleWindow time.Duration `json:"networkIdleWindow"`

	ElementsToMatch int `json:"elementsToMatch"`

	ExtraArgs []string `json:"extraArgs"`
}

// Default returns the configuration with every spec-mandated default
// applied, before environment overrides or explicit options run.
func Default() Config {
	return Config{
		Host:              "127.0.0.1",
		WaitForStart:      500 * time.Millisecond,
		Timeout:           15 * time.Second,
		NavigationTimeout: 30 * time.Second,
		NetworkIdleWindow: 450 * time.Millisecond,
		ElementsToMatch:   10,
	}
}

// Option mutates a Config. Applied after defaults and environment
// overrides, so an explicit option always wins.
type Option func(*Config)

// Headless runs the browser without a visible window.
func Headless() Option { return func(c *Config) { c.Headless = true } }

// IgnoreSSLErrors makes the attach step ignore certificate errors.
func IgnoreSSLErrors() Option { return func(c *Config) { c.IgnoreSSLErrors = true } }

// Observe enables the observe-delay wrapper's slowdown between actions.
func Observe(delay time.Duration) Option {
	return func(c *Config) { c.Observe = true; c.ObserveTime = delay }
}

// Port pins the remote-debugging port instead of letting the OS pick one.
func Port(p int) Option { return func(c *Config) { c.Port = p } }

// ExecutablePath overrides automatic browser discovery.
func ExecutablePath(path string) Option { return func(c *Config) { c.ExecutablePath = path } }

// UserDataDir overrides the generated taiko_dev_profile-* directory.
func UserDataDir(dir string) Option { return func(c *Config) { c.UserDataDir = dir } }

// WaitForStart overrides the Navigation Waiter's arm-detection window.
func WaitForStart(d time.Duration) Option { return func(c *Config) { c.WaitForStart = d } }

// Timeout overrides the Navigation Waiter's default deadline.
func Timeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// Args appends extra command-line flags to the child-process launch,
// matching spec.md §6's "user-supplied args appended" clause.
func Args(args ...string) Option { return func(c *Config) { c.ExtraArgs = append(c.ExtraArgs, args...) } }

// New assembles a Config from defaults, TAIKO_* environment overrides,
// and then opts, in that precedence order.
func New(opts ...Option) Config {
	c := Default()
	applyEnvOverrides(&c)
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// applyEnvOverrides mirrors theRebelliousNerd-codenerd's
// Config.applyEnvOverrides: each set var replaces its field's current
// value, defaults included. Environment settings never clobber an
// explicit option because New runs them between Default() and the
// Option list, never after it.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("TAIKO_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = b
		}
	}
	if v := os.Getenv("TAIKO_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("TAIKO_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("TAIKO_EXECUTABLE_PATH"); v != "" {
		c.ExecutablePath = v
	}
	if v := os.Getenv("TAIKO_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TAIKO_IGNORE_SSL_ERRORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.IgnoreSSLErrors = b
		}
	}
}
