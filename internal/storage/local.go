// Package storage keeps uploaded images on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotLocal        = errors.New("path is not served from local storage")
	ErrUnsupportedType = errors.New("unsupported file extension")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".svg":  true,
}

// LocalStore writes files under baseDir and exposes them under prefix.
type LocalStore struct {
	baseDir string
	prefix  string
}

func NewLocalStore(baseDir, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		prefix:  "/" + strings.Trim(prefix, "/"),
	}, nil
}

// Dir returns the directory files are written to
func (s *LocalStore) Dir() string {
	return s.baseDir
}

// Prefix returns the public URL prefix, e.g. "/uploads".
func (s *LocalStore) Prefix() string {
	return s.prefix
}

// Save copies r into a new file under folder and returns its public path.
// The stored name is random; only the extension of name is kept.
func (s *LocalStore) Save(ctx context.Context, folder, name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	folder = strings.Trim(path.Clean("/"+folder), "/")

	dir := filepath.Join(s.baseDir, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	filename := uuid.NewString() + ext
	out, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: r}); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path.Join(s.prefix, folder, filename), nil
}

// Delete removes the file behind a public path returned by Save.
// A file that is already gone is not an error.
func (s *LocalStore) Delete(publicPath string) error {
	full, err := s.resolve(publicPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// IsLocal reports whether p points into this store rather than an external URL.
func (s *LocalStore) IsLocal(p string) bool {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return false
	}
	return strings.HasPrefix(p, s.prefix+"/")
}

func (s *LocalStore) resolve(publicPath string) (string, error) {
	if !s.IsLocal(publicPath) {
		return "", ErrNotLocal
	}
	cleaned := path.Clean(publicPath)
	if !strings.HasPrefix(cleaned, s.prefix+"/") {
		return "", ErrNotLocal
	}
	rel := strings.TrimPrefix(cleaned, s.prefix+"/")
	return filepath.Join(s.baseDir, filepath.FromSlash(rel)), nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
