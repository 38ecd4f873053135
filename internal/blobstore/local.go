package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"content-api/internal/domain"
)

const tmpDir = ".tmp"

// Local keeps each container as a directory under root. Uploads are written
// to a temp file and renamed into place, so readers never see partial blobs.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (l *Local) EnsureContainers(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir, err := l.containerDir(name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Join(dir, tmpDir), 0o755); err != nil {
			return fmt.Errorf("%w: create container %s: %v", domain.ErrStoreUnavailable, name, err)
		}
	}
	return nil
}

func (l *Local) Upload(ctx context.Context, container string, r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: empty stream", domain.ErrUpload)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	dir, err := l.containerDir(container)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: container %s: %v", domain.ErrUpload, container, err)
	}

	tmp, err := os.CreateTemp(filepath.Join(dir, tmpDir), "put-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	name := NewName(filename)
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	return name, nil
}

func (l *Local) Delete(ctx context.Context, container, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.blobPath(container, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.NotFoundf("blob %s/%s", container, name)
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (l *Local) List(ctx context.Context, container string) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := l.containerDir(container)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NotFoundf("container %s", container)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue // removed while listing
		}
		out = append(out, Info{Name: e.Name(), SizeBytes: fi.Size(), LastModified: fi.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (l *Local) containerDir(container string) (string, error) {
	if err := validElement(container); err != nil {
		return "", fmt.Errorf("container: %w", err)
	}
	return filepath.Join(l.root, container), nil
}

func (l *Local) blobPath(container, name string) (string, error) {
	dir, err := l.containerDir(container)
	if err != nil {
		return "", err
	}
	if err := validElement(name); err != nil {
		return "", fmt.Errorf("blob name: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// validElement accepts a single path element that cannot escape the root.
func validElement(s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return domain.Validationf("name is required")
	case s == "." || s == ".." || s == tmpDir:
		return domain.Validationf("invalid name %q", s)
	case strings.ContainsAny(s, `/\`):
		return domain.Validationf("name %q must not contain path separators", s)
	}
	return nil
}
