package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"tenant-validation/internal/shared/storage/object"
)

// Store keeps blobs on the local filesystem. Used in dev and tests.
type Store struct {
	baseDir string
}

// New creates a local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Save writes r under a generated owner-scoped key.
func (s *Store) Save(ctx context.Context, ownerID, fileName string, r io.Reader) (object.Stored, error) {
	if err := ctx.Err(); err != nil {
		return object.Stored{}, err
	}
	key, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return object.Stored{}, fmt.Errorf("build key: %w", err)
	}
	mime, body, err := object.Sniff(r)
	if err != nil {
		return object.Stored{}, err
	}
	size, err := writeFile(filepath.Join(s.baseDir, filepath.FromSlash(key)), body)
	if err != nil {
		return object.Stored{}, err
	}
	return object.Stored{Key: key, SizeBytes: size, MimeType: mime}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := resolve(s.baseDir, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, key)
	}
	return f, err
}

// Delete removes a stored object. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := resolve(s.baseDir, key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Mirror copies files from the origin directory into a second directory that
// plays the role of the OCR-region bucket.
type Mirror struct {
	sourceDir string
	targetDir string
}

// NewMirror builds a filesystem mirror.
func NewMirror(sourceDir, targetDir string) *Mirror {
	return &Mirror{sourceDir: sourceDir, targetDir: targetDir}
}

func (m *Mirror) Bucket() string { return "local" }

func (m *Mirror) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := resolve(m.targetDir, key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (m *Mirror) Copy(ctx context.Context, sourceKey, targetKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := resolve(m.sourceDir, sourceKey)
	if err != nil {
		return err
	}
	dst, err := resolve(m.targetDir, targetKey)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", object.ErrNotFound, sourceKey)
		}
		return err
	}
	defer in.Close()
	_, err = writeFile(dst, in)
	return err
}

func (m *Mirror) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return (&Store{baseDir: m.targetDir}).Open(ctx, key)
}

func resolve(baseDir, key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(baseDir, clean), nil
}

func writeFile(full string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	n, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}
	return n, nil
}

var (
	_ object.Store  = (*Store)(nil)
	_ object.Mirror = (*Mirror)(nil)
)
