package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "unit not registered")
		if err.Error() != "[NOT_FOUND] unit not registered" {
			t.Errorf("expected [NOT_FOUND] unit not registered, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("exit status 1")
		err := Wrap(original, CodeTransportFailure, "bazel build failed")
		expected := "[TRANSPORT_FAILURE] bazel build failed: exit status 1"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeGraphInvariant, "two records for //a:lib")
		if !IsCode(err, CodeGraphInvariant) {
			t.Error("expected IsCode to return true for CodeGraphInvariant")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("resolve //a: %w", New(CodeMetadataUnavailable, "no records"))
		if !IsCode(err, CodeMetadataUnavailable) {
			t.Error("expected code to survive fmt.Errorf wrapping")
		}
		if CodeOf(err) != CodeMetadataUnavailable {
			t.Errorf("expected CodeOf METADATA_UNAVAILABLE, got %s", CodeOf(err))
		}
	})

	t.Run("CodeOfForeign", func(t *testing.T) {
		if CodeOf(errors.New("boom")) != CodeInternal {
			t.Error("expected foreign errors to map to INTERNAL_ERROR")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeValidationError, "bad label"), CtxLabel, "//a:")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxLabel] != "//a:" {
			t.Errorf("expected label context, got %v", de.Context)
		}
	})
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if err := FromContext(ctx, "resolve"); err != nil {
		t.Fatalf("expected nil for live context, got %v", err)
	}
	cancel()
	err := FromContext(ctx, "resolve")
	if !IsCode(err, CodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled in chain")
	}
}
