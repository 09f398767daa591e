package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestOpError_Message(t *testing.T) {
	err := &OpError{
		Op:   "yamlmanifest.load",
		Kind: KindNotFound,
		Path: "pipelines/liberfa.yaml",
		Err:  ErrNotFound,
	}

	msg := err.Error()
	if !strings.Contains(msg, "yamlmanifest.load") {
		t.Fatalf("expected op in message, got %q", msg)
	}
	if !strings.Contains(msg, "pipelines/liberfa.yaml") {
		t.Fatalf("expected path in message, got %q", msg)
	}
}

func TestIsKind(t *testing.T) {
	base := &OpError{Op: "x", Kind: KindMissingVar, Err: ErrMissingVar}
	wrapped := fmt.Errorf("outer: %w", base)

	if !IsKind(wrapped, KindMissingVar) {
		t.Fatal("expected IsKind to see through wrapping")
	}
	if IsKind(wrapped, KindNotFound) {
		t.Fatal("expected kind mismatch to return false")
	}
	if IsKind(errors.New("plain"), KindMissingVar) {
		t.Fatal("expected plain error to have no kind")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(&OpError{Op: "x", Kind: KindParse}); got != KindParse {
		t.Fatalf("expected parse kind, got %q", got)
	}
	if got := KindOf(errors.New("plain")); got != KindExecution {
		t.Fatalf("expected execution fallback, got %q", got)
	}
}
