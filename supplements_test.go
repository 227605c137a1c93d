package taiko

import (
	"context"
	"testing"
)

// Every exported verb in supplements.go must fail with NotInitialized
// before touching a browser, the same contract actions.go and
// navigation.go's verbs honor.
func TestSupplementVerbsRequireOpenBrowser(t *testing.T) {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()

	ctx := context.Background()

	if _, err := InShadow(ctx, "#host", ".inner"); err == nil {
		t.Error("InShadow with no open browser should error")
	}
	if _, err := OnConsoleMessage(func(string, string, string) {}); err == nil {
		t.Error("OnConsoleMessage with no open browser should error")
	}
	if _, err := OnException(func(string, string) {}); err == nil {
		t.Error("OnException with no open browser should error")
	}
	if _, err := StartRecording(ctx); err == nil {
		t.Error("StartRecording with no open browser should error")
	}
	if _, err := Emulate(ctx, EmulateOptions{}); err == nil {
		t.Error("Emulate with no open browser should error")
	}
	if _, err := SetLocation(ctx, 0, 0, 0); err == nil {
		t.Error("SetLocation with no open browser should error")
	}
	if _, err := SetPermission(ctx, "https://example.com", "geolocation", "granted"); err == nil {
		t.Error("SetPermission with no open browser should error")
	}
	if _, err := WriteClipboard(ctx, "hi"); err == nil {
		t.Error("WriteClipboard with no open browser should error")
	}
	if _, err := ReadClipboard(ctx); err == nil {
		t.Error("ReadClipboard with no open browser should error")
	}
}

func assertNotInitialized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a NotInitialized error, got nil")
	}
	terr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error is %T, want *Error", err)
	}
	if terr.Kind != NotInitialized {
		t.Fatalf("Kind = %s, want %s", terr.Kind, NotInitialized)
	}
}

func TestSupplementVerbsReportNotInitializedKind(t *testing.T) {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()

	_, err := Emulate(context.Background(), EmulateOptions{})
	assertNotInitialized(t, err)
}
