package browser

import (
	"context"
	"testing"
	"time"
)

func TestFindExecutable_ExplicitPathMustExist(t *testing.T) {
	if path := findExecutable("/nonexistent/chrome-binary"); path != "" {
		t.Errorf("findExecutable with nonexistent path = %q, want empty", path)
	}
	if path := findExecutable("/bin/sh"); path != "/bin/sh" {
		t.Errorf("findExecutable with an existing path = %q, want /bin/sh", path)
	}
}

func TestFindExecutable_AutoDiscoverOrEmpty(t *testing.T) {
	// No assertion on the result beyond "doesn't panic": whether a
	// Chromium binary is installed varies by machine, matching hubcap's
	// own FindChrome test's tolerance for a CI box with no browser.
	_ = findExecutable("")
}

func TestAllocatePort_UsesRequestedPortWhenNonZero(t *testing.T) {
	port, err := allocatePort(9999)
	if err != nil {
		t.Fatalf("allocatePort: %v", err)
	}
	if port != 9999 {
		t.Errorf("port = %d, want 9999", port)
	}
}

func TestAllocatePort_PicksEphemeralPortWhenZero(t *testing.T) {
	port, err := allocatePort(0)
	if err != nil {
		t.Fatalf("allocatePort: %v", err)
	}
	if port == 0 {
		t.Error("expected a nonzero ephemeral port")
	}
}

func TestWaitForDebugPort_TimesOutWhenNothingListens(t *testing.T) {
	port, err := allocatePort(0)
	if err != nil {
		t.Fatalf("allocatePort: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := waitForDebugPort(ctx, port); err == nil {
		t.Fatal("expected an error, nothing is listening on this port")
	}
}
