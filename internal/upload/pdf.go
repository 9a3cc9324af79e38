package upload

import (
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// IsPDF sniffs the content of r and reports whether it is a PDF.
// The reader is rewound afterwards so the caller can store the file.
func IsPDF(r io.ReadSeeker) (bool, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return false, fmt.Errorf("detect content type: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("rewind upload: %w", err)
	}
	return mt.Is("application/pdf"), nil
}
