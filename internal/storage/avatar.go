// Package storage writes uploaded avatar files to a local directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrAvatarTooLarge   = errors.New("avatar file too large")
	ErrOutsideUploadDir = errors.New("path is outside the upload directory")
)

type AvatarStore struct {
	dir      string
	maxBytes int64
}

func NewAvatarStore(dir string, maxBytes int64) (*AvatarStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &AvatarStore{dir: filepath.Clean(dir), maxBytes: maxBytes}, nil
}

// Save copies the upload into the directory under a fresh unique name and
// returns the stored path.
func (s *AvatarStore) Save(file *multipart.FileHeader) (string, error) {
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", ErrAvatarTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded avatar failed: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filepath.Base(file.Filename)))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create avatar file failed: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write avatar file failed: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close avatar file failed: %w", err)
	}
	return path, nil
}

// Remove deletes a previously saved avatar. Empty and already missing paths
// are no-ops.
func (s *AvatarStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if filepath.Dir(filepath.Clean(path)) != s.dir {
		return fmt.Errorf("remove avatar %s failed: %w", path, ErrOutsideUploadDir)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove avatar failed: %w", err)
	}
	return nil
}
