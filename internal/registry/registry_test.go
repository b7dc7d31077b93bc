package registry

import (
	"strings"
	"testing"
)

func TestCurrentLazilyCreates(t *testing.T) {
	r := New()

	id := r.Current()
	if id == "" {
		t.Fatal("Current returned an empty id with no prior selection")
	}
	if !strings.HasPrefix(id, "conv_") {
		t.Errorf("expected generated id with conv_ prefix, got %q", id)
	}
	if r.Current() != id {
		t.Error("Current changed the id on a repeated call")
	}
}

func TestSelectThenCurrent(t *testing.T) {
	r := New()
	r.Select("chat-42")

	if got := r.Current(); got != "chat-42" {
		t.Errorf("Current after Select = %q, want %q", got, "chat-42")
	}
}

func TestStartNewReplacesCurrent(t *testing.T) {
	r := New()
	first := r.StartNew()
	second := r.StartNew()

	if first == second {
		t.Errorf("two StartNew calls produced the same id %q", first)
	}
	if got := r.Current(); got != second {
		t.Errorf("Current = %q, want the latest id %q", got, second)
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 || parts[0] != "conv" {
		t.Fatalf("unexpected id shape: %q", id)
	}
	if len(parts[2]) != 8 {
		t.Errorf("expected 8-character suffix, got %q", parts[2])
	}
}
