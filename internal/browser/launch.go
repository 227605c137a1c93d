package browser

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// LaunchOptions configures Launch. Grounded on
// tomyan-hubcap/internal/chrome/launcher.LaunchOptions, with the flag set
// expanded to match spec.md §6's "Child process" clause.
type LaunchOptions struct {
	ExecutablePath string
	Port           int // 0 means ephemeral: let the OS pick
	Headless       bool
	UserDataDir    string // created under the OS temp dir if empty
	ExtraArgs      []string
}

// instance is a running browser process plus the profile directory, if
// this package created one.
type instance struct {
	cmd         *exec.Cmd
	port        int
	userDataDir string
	ownsDataDir bool
}

// profileDirPrefix matches spec.md §6 verbatim: "Creates a temporary
// profile directory under the OS temp dir with prefix `taiko_dev_profile-`".
const profileDirPrefix = "taiko_dev_profile-"

func findExecutable(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		candidates = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func allocatePort(requested int) (int, error) {
	if requested != 0 {
		return requested, nil
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("browser: allocating an ephemeral port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// launch starts the browser process. It does not wait for the debugging
// endpoint to come up; the caller does that with waitForDebugPort, which
// polls the port with TCP dials, and attach then reads the WebSocket URL
// from /json/version. Stderr is not scanned for the endpoint line (spec.md
// §4.1); port polling is what tomyan-hubcap's own launcher does
// (WaitForPort), and it is more robust across Chromium builds.
func launch(opts LaunchOptions) (*instance, error) {
	execPath := findExecutable(opts.ExecutablePath)
	if execPath == "" {
		return nil, fmt.Errorf("browser: no Chromium-family executable found")
	}

	port, err := allocatePort(opts.Port)
	if err != nil {
		return nil, err
	}

	ownsDataDir := false
	dataDir := opts.UserDataDir
	if dataDir == "" {
		dataDir, err = os.MkdirTemp("", profileDirPrefix+"*")
		if err != nil {
			return nil, fmt.Errorf("browser: creating profile directory: %w", err)
		}
		ownsDataDir = true
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", dataDir),
		"--use-mock-keychain",
		"--no-first-run",
		"--disable-background-networking",
	}
	if opts.Headless {
		args = append(args, "--headless", "--window-size=1440,900")
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, "about:blank")

	cmd := exec.Command(execPath, args...)
	if err := cmd.Start(); err != nil {
		if ownsDataDir {
			os.RemoveAll(dataDir)
		}
		return nil, fmt.Errorf("browser: starting %s: %w", execPath, err)
	}

	return &instance{cmd: cmd, port: port, userDataDir: dataDir, ownsDataDir: ownsDataDir}, nil
}

// discoveryDeadline is the 15s budget from spec.md §4.1: "Fail if the
// browser exits before the endpoint is emitted within a 15s deadline."
const discoveryDeadline = 15 * time.Second

// waitForDebugPort polls localhost:port until it accepts connections or
// ctx/discoveryDeadline expires, matching WaitForPort in
// tomyan-hubcap/internal/chrome/launcher.go.
func waitForDebugPort(ctx context.Context, port int) error {
	ctx, cancel := context.WithTimeout(ctx, discoveryDeadline)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	for {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("browser: debugging port %d did not open within %s", port, discoveryDeadline)
		case <-ticker.C:
		}
	}
}

// stop terminates the process and removes any profile directory this
// package created, swallowing filesystem errors per spec.md §4.1's close
// operation ("asynchronously remove the temp profile (swallow filesystem
// errors)").
func (inst *instance) stop() {
	if inst.cmd != nil && inst.cmd.Process != nil {
		inst.cmd.Process.Signal(os.Interrupt)
		done := make(chan struct{})
		go func() { inst.cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			inst.cmd.Process.Kill()
		}
	}
	if inst.ownsDataDir && inst.userDataDir != "" {
		go os.RemoveAll(inst.userDataDir)
	}
}
