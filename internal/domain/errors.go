package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrListingNotFound is returned when no listing exists for a post id.
	ErrListingNotFound = errors.New("listing not found")

	// ErrApplicationNotFound is returned when no application exists for an id.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrDuplicateListing is reserved for post_id collisions. The upsert is a
	// single ON CONFLICT statement, so it is not currently triggered.
	ErrDuplicateListing = errors.New("listing already exists for post_id")
)

// ValidationError reports a rejected input field. Nothing is persisted when
// one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Upload failure reasons.
const (
	UploadReasonNoFile      = "no_file"
	UploadReasonInvalidType = "invalid_file_type"
	UploadReasonStorage     = "storage"
)

// UploadError reports a rejected or failed resume upload. When one is
// returned no application row has been written.
type UploadError struct {
	Reason  string
	Message string
	Err     error
}

func (e UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("upload %s: %s", e.Reason, e.Message)
}

func (e UploadError) Unwrap() error { return e.Err }
