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

var ErrInvalidRef = errors.New("storage: invalid reference")

// FSStore writes media under a base directory and serves it from baseURL.
type FSStore struct {
	base    string
	baseURL string
}

func NewFSStore(base, baseURL string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Base is the directory media is written to.
func (s *FSStore) Base() string { return s.base }

func (s *FSStore) Upload(ctx context.Context, folder, filename string, r io.Reader) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	ref := path.Join(cleanFolder(folder), uuid.NewString()+strings.ToLower(path.Ext(filename)))
	dst, err := s.resolve(ref)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", "", fmt.Errorf("storage: write %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		return "", "", err
	}
	return s.URL(ref), ref, nil
}

// Delete removes the asset; a missing asset is not an error.
func (s *FSStore) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	dst, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FSStore) URL(ref string) string {
	return s.baseURL + "/" + ref
}

// resolve maps ref to a path inside base, rejecting traversal.
func (s *FSStore) resolve(ref string) (string, error) {
	clean := path.Clean("/" + ref)
	if clean == "/" || clean != "/"+ref {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.base, filepath.FromSlash(clean)), nil
}

func cleanFolder(folder string) string {
	f := strings.Trim(path.Clean("/"+folder), "/")
	if f == "" || f == "." {
		return "misc"
	}
	return f
}
