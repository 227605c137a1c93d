// Package logging provides the single *zap.Logger this module hands to
// the session manager (browser.Open). Grounded on
// theRebelliousNerd-codenerd's cmd/nerd package-level `logger` variable
// and its zap.String/zap.Error field usage (cmd_browser.go,
// cmd_instruction.go); unlike codenerd's own internal/logging package
// (category-keyed file logging gated by a JSON config), this module
// needs only the one logger most of the pack's CLI commands already use
// directly.
package logging

import "go.uber.org/zap"

// Nop returns a logger that discards everything, the default used when
// no logger is configured (mirrors zap.NewNop() as used throughout
// codenerd's cmd/nerd/cli_test.go).
func Nop() *zap.Logger { return zap.NewNop() }

// Development returns a human-readable logger suitable for the cmd/taiko
// CLI's default run mode.
func Development() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
