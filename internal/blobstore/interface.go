// Package blobstore stores binary assets in named containers.
//
// Failures are reported with the sentinels in package domain: uploads fail
// with domain.ErrUpload, deletes of absent blobs with domain.ErrNotFound and
// every other backend failure with domain.ErrStoreUnavailable.
package blobstore

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Info describes one stored blob.
type Info struct {
	Name         string
	SizeBytes    int64
	LastModified time.Time
}

// Store is the blob store client used by the write coordinator and the sweeper.
type Store interface {
	// EnsureContainers creates any missing container. It is idempotent.
	EnsureContainers(ctx context.Context, names ...string) error
	// Upload writes r under a freshly generated name and returns that name.
	// A failed upload leaves nothing behind.
	Upload(ctx context.Context, container string, r io.Reader, filename string) (string, error)
	// Delete removes the blob and every retained version of it.
	Delete(ctx context.Context, container, name string) error
	List(ctx context.Context, container string) ([]Info, error)
}

const maxExtLen = 6 // dot included

// NewName derives a collision resistant blob name from a random UUID and the
// lowercased extension of the original filename.
func NewName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(strings.TrimSpace(filename))))
	if len(ext) > maxExtLen || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return uuid.NewString() + ext
}
