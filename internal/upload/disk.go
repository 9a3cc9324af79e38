package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskStorage writes resumes to a local directory. Stored files get a
// UUID prefix so repeated uploads with the same filename never collide.
type DiskStorage struct {
	dir     string
	baseURL string
}

var _ Storage = (*DiskStorage)(nil)

// NewDiskStorage creates the upload directory if needed.
func NewDiskStorage(dir, baseURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes the file to disk and returns its public URL.
func (s *DiskStorage) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.New().String() + "_" + sanitizeFilename(filename)
	dst := filepath.Join(s.dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create resume file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write resume file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close resume file: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// sanitizeFilename reduces a client-supplied filename to a safe base name.
// Windows clients send backslash separators, which filepath treats as plain
// characters on Linux, so they are normalized by hand.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "resume.pdf"
	}
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || strings.Trim(out, "._-") == "" {
		return "resume.pdf"
	}
	return out
}
