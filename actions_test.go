package taiko

import (
	"fmt"
	"testing"

	"github.com/suziejprince/taiko/internal/action"
	iselector "github.com/suziejprince/taiko/internal/selector"
)

func TestMapActionErr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"too many matches", action.ErrTooManyMatches, TooManyMatches},
		{"unsupported file click", action.ErrUnsupportedFileClick, InvalidOperation},
		{"not writable", action.ErrNotWritable, InvalidOperation},
		{"not found", &iselector.NotFoundError{Description: "button \"Save\""}, ElementNotFound},
		{"wrapped not found", fmt.Errorf("pipeline: %w", &iselector.NotFoundError{Description: "link"}), ElementNotFound},
		{"unrecognized", fmt.Errorf("boom"), WireError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapActionErr("clicking thing", tc.err)
			if tc.err == nil {
				if got != nil {
					t.Fatalf("mapActionErr(nil) = %v, want nil", got)
				}
				return
			}
			terr, ok := got.(*Error)
			if !ok {
				t.Fatalf("mapActionErr returned %T, want *Error", got)
			}
			if terr.Kind != tc.want {
				t.Errorf("Kind = %s, want %s", terr.Kind, tc.want)
			}
		})
	}
}

func TestFromActionResult(t *testing.T) {
	t.Parallel()

	r := fromActionResult(action.Result{Description: "Clicked button \"Save\""})
	if r.Description != "Clicked button \"Save\"" {
		t.Errorf("Description = %q, want %q", r.Description, "Clicked button \"Save\"")
	}
}

func TestVerbsRequireOpenBrowser(t *testing.T) {
	t.Parallel()

	globalMu.Lock()
	global = nil
	globalMu.Unlock()

	if _, err := Click(nil, S("Save"), ClickOptions{}); err == nil {
		t.Fatal("Click with no open browser should error")
	} else if terr, ok := err.(*Error); !ok || terr.Kind != NotInitialized {
		t.Errorf("err = %v, want NotInitialized", err)
	}
}
