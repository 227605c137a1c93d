package main

import "testing"

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	got := splitArgs("  goto   https://example.com  ")
	want := []string{"goto", "https://example.com"}
	if len(got) != len(want) {
		t.Fatalf("splitArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitArgs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitWriteInto(t *testing.T) {
	t.Parallel()

	text, sel, ok := splitWriteInto([]string{"hello", "world", "into", "Name", "field"})
	if !ok {
		t.Fatal("splitWriteInto should have matched \" into \"")
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if sel != "Name field" {
		t.Errorf("sel = %q, want %q", sel, "Name field")
	}
}

func TestSplitWriteInto_NoInto(t *testing.T) {
	t.Parallel()

	_, _, ok := splitWriteInto([]string{"hello", "world"})
	if ok {
		t.Error("splitWriteInto should fail without \" into \"")
	}
}
