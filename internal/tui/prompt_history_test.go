package tui

import "testing"

func TestPromptHistoryBrowse(t *testing.T) {
	var h promptHistory
	h.Set([]string{"ping", "ping", "version", ""})
	if got := h.Entries(); len(got) != 2 {
		t.Fatalf("Entries = %#v, want deduped pair", got)
	}

	if v, ok := h.Prev("ec"); !ok || v != "version" {
		t.Fatalf("Prev = %q %v", v, ok)
	}
	if v, ok := h.Prev(""); !ok || v != "ping" {
		t.Fatalf("Prev = %q %v", v, ok)
	}
	if v, ok := h.Prev(""); !ok || v != "ping" {
		t.Fatalf("Prev at top = %q %v", v, ok)
	}
	if !h.Browsing() {
		t.Fatalf("should be browsing")
	}
	if v, ok := h.Next(); !ok || v != "version" {
		t.Fatalf("Next = %q %v", v, ok)
	}
	if v, ok := h.Next(); !ok || v != "ec" {
		t.Fatalf("Next should restore draft, got %q %v", v, ok)
	}
	if _, ok := h.Next(); ok {
		t.Fatalf("Next past draft should report false")
	}

	h.Add("echo hi")
	if h.Browsing() {
		t.Fatalf("Add should reset browsing")
	}
	if v, _ := h.Prev(""); v != "echo hi" {
		t.Fatalf("Prev after Add = %q", v)
	}
}
