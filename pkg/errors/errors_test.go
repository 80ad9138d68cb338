package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := Newf(ErrCodeDuplicateName, "layer %q exists", "TOP")
	want := `DUPLICATE_NAME: layer "TOP" exists`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewKeepsMessageVerbatim(t *testing.T) {
	// Layer and net names come from user input and may contain percent
	// signs; the non-formatting constructors must not interpret them.
	msg := `layer "50% fill" not found`
	if got := New(ErrCodeLayerNotFound, msg).Error(); got != "LAYER_NOT_FOUND: "+msg {
		t.Errorf("New message = %q", got)
	}
	cause := stderrors.New("boom")
	if got := Wrap(cause, ErrCodeStore, msg).Message; got != msg {
		t.Errorf("Wrap message = %q", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, ErrCodeStore, "save failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if err.Error() != "STORE_ERROR: save failed: disk full" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := New(ErrCodeExtentEmpty, "clip region is empty")

	if !Is(err, ErrCodeExtentEmpty) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeTransformAbort) {
		t.Error("Is should not match a different code")
	}

	// Wrapped in a plain fmt error, the code should still be found.
	wrapped := fmt.Errorf("cutout: %w", err)
	if !Is(wrapped, ErrCodeExtentEmpty) {
		t.Error("Is should unwrap through fmt.Errorf chains")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeNetNotFound, "no net")); got != ErrCodeNetNotFound {
		t.Errorf("GetCode = %q, want %q", got, ErrCodeNetNotFound)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode of plain error = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeUnknownMaterial, "material cu not in library")
	if got := UserMessage(err); got != "material cu not in library" {
		t.Errorf("UserMessage = %q", got)
	}
	if got := UserMessage(stderrors.New("raw")); got != "raw" {
		t.Errorf("UserMessage of plain error = %q", got)
	}
}
