package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

// LocalStorage keeps result files on the local filesystem
type LocalStorage struct {
	dir    string
	urlFor URLFunc
}

// NewLocalStorage creates dir if needed
func NewLocalStorage(dir string, urlFor URLFunc) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	if urlFor == nil {
		urlFor = func(name string) string { return "file://" + filepath.Join(dir, filepath.FromSlash(name)) }
	}
	return &LocalStorage{dir: dir, urlFor: urlFor}, nil
}

// resolve maps name to a path that cannot escape the storage directory
func (l *LocalStorage) resolve(name string) (string, error) {
	p := filepath.Join(l.dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(l.dir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", apperrors.NewAppError(apperrors.ErrCodeInvalidInput, fmt.Sprintf("invalid file name %q", name), nil)
	}
	return p, nil
}

// Upload writes the file atomically
func (l *LocalStorage) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	p, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", storageError("failed to create directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", storageError("failed to create file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", storageError("failed to write file", err)
	}
	if err := tmp.Close(); err != nil {
		return "", storageError("failed to write file", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", storageError("failed to move file into place", err)
	}
	return l.urlFor(name), nil
}

// Open reads a stored file
func (l *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := l.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, storageError("failed to open file", err)
	}
	return f, nil
}

func notFound(name string) error {
	return apperrors.NewAppError(apperrors.ErrCodeNotFound, fmt.Sprintf("results file %q not found", name), nil)
}

func storageError(message string, err error) error {
	return apperrors.WrapError(apperrors.ErrCodeStorageError, message, err)
}
