package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestUploadError_Error(t *testing.T) {
	e := UploadError{Reason: UploadReasonInvalidType, Message: "Only PDF files are allowed."}
	want := "upload invalid_file_type: Only PDF files are allowed."
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	wrapped := UploadError{Reason: UploadReasonStorage, Message: "failed to store resume", Err: errors.New("disk full")}
	want = "upload storage: failed to store resume: disk full"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestUploadError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	e := UploadError{Reason: UploadReasonStorage, Message: "failed to store resume", Err: cause}

	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	// Matching through an outer wrap, as the API boundary does.
	outer := fmt.Errorf("apply: %w", e)
	var upErr UploadError
	if !errors.As(outer, &upErr) {
		t.Fatal("errors.As should match UploadError through wrapping")
	}
	if upErr.Reason != UploadReasonStorage {
		t.Errorf("Reason = %q, want %q", upErr.Reason, UploadReasonStorage)
	}
}
