package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeNotFound, "unknown region %q", "abc")
	want := `NOT_FOUND: unknown region "abc"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cause := stderrors.New("boom")
	wrapped := Wrap(ErrCodeInternal, cause, "building plan")
	if wrapped.Error() != "INTERNAL_ERROR: building plan: boom" {
		t.Errorf("wrapped Error() = %q", wrapped.Error())
	}
}

func TestUnwrapChain(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(ErrCodeBackend, cause, "submit failed")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if stderrors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestCodeHelpers(t *testing.T) {
	err := New(ErrCodeDegenerateMask, "refine on unattached region")

	if !Is(err, ErrCodeDegenerateMask) {
		t.Error("Is should match the code")
	}
	if Is(err, ErrCodeNotFound) {
		t.Error("Is should reject a different code")
	}
	if GetCode(err) != ErrCodeDegenerateMask {
		t.Errorf("GetCode = %q", GetCode(err))
	}
	if GetCode(stderrors.New("plain")) != "" {
		t.Error("GetCode of a plain error should be empty")
	}
	if UserMessage(err) != "refine on unattached region" {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}
