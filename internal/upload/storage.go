// Package upload handles resume file validation and storage.
package upload

import (
	"context"
	"io"
)

// Storage persists uploaded resume files and returns a URL where the
// stored file can be retrieved.
type Storage interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}
