package blobclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type mockBlob struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MockBlobClient is an in-memory implementation of BlobClient for testing.
type MockBlobClient struct {
	mu          sync.RWMutex
	blobs       map[string]mockBlob
	failUploads int
	uploads     int
}

// NewMockBlobClient creates a new mock blob client.
func NewMockBlobClient() *MockBlobClient {
	return &MockBlobClient{blobs: make(map[string]mockBlob)}
}

// FailNextUploads makes the next n uploads fail.
func (m *MockBlobClient) FailNextUploads(n int) {
	m.mu.Lock()
	m.failUploads = n
	m.mu.Unlock()
}

// UploadCalls returns how many uploads were attempted.
func (m *MockBlobClient) UploadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}

func (m *MockBlobClient) Upload(ctx context.Context, name string, data []byte, opts UploadOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	if m.failUploads > 0 {
		m.failUploads--
		return "", fmt.Errorf("upload %s: simulated failure", name)
	}
	m.blobs[name] = mockBlob{
		data:        append([]byte(nil), data...),
		contentType: opts.ContentType,
		modified:    time.Now(),
	}
	return "mock://" + name, nil
}

func (m *MockBlobClient) Download(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
	}
	return append([]byte(nil), b.data...), nil
}

func (m *MockBlobClient) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

// List returns matching blobs sorted by name.
func (m *MockBlobClient) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blobs := []BlobInfo{}
	for name, b := range m.blobs {
		if strings.HasPrefix(name, prefix) {
			blobs = append(blobs, BlobInfo{
				Name:         name,
				Size:         int64(len(b.data)),
				ContentType:  b.contentType,
				LastModified: b.modified,
				URL:          "mock://" + name,
			})
		}
	}
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs, nil
}
