// Package blobclient stores job inputs and outputs in blob storage.
package blobclient

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound is returned (wrapped) when a blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobClient stores blobs in one container.
type BlobClient interface {
	// Upload stores data under name and returns the blob URL.
	Upload(ctx context.Context, name string, data []byte, opts UploadOptions) (url string, err error)

	// Download returns the content of a blob.
	Download(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List lists blobs whose names start with prefix.
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// BlobInfo contains information about a blob.
type BlobInfo struct {
	Name         string
	Size         int64
	ContentType  string
	LastModified time.Time
	URL          string
}

// UploadOptions contains optional parameters for upload operations.
type UploadOptions struct {
	ContentType string
	AccessTier  string // Hot, Cool, Archive
	Metadata    map[string]string
}

// DeletePrefix deletes every blob under prefix and returns how many were
// deleted.
func DeletePrefix(ctx context.Context, c BlobClient, prefix string) (int, error) {
	blobs, err := c.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, b := range blobs {
		if err := c.Delete(ctx, b.Name); err != nil {
			return i, err
		}
	}
	return len(blobs), nil
}
