package blobclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockBlobClient_UploadDownload(t *testing.T) {
	client := NewMockBlobClient()
	ctx := context.Background()

	url, err := client.Upload(ctx, "jobs/1/in/0-a.pdf", []byte("data"), UploadOptions{ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "mock://jobs/1/in/0-a.pdf", url)

	data, err := client.Download(ctx, "jobs/1/in/0-a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	_, err = client.Download(ctx, "missing")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestMockBlobClient_ListAndDeletePrefix(t *testing.T) {
	client := NewMockBlobClient()
	ctx := context.Background()

	for _, name := range []string{"jobs/1/out/b.pdf", "jobs/1/in/a.pdf", "jobs/2/in/c.pdf"} {
		_, err := client.Upload(ctx, name, []byte(name), UploadOptions{})
		require.NoError(t, err)
	}

	blobs, err := client.List(ctx, "jobs/1/")
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Equal(t, "jobs/1/in/a.pdf", blobs[0].Name)
	assert.Equal(t, int64(len("jobs/1/in/a.pdf")), blobs[0].Size)

	n, err := DeletePrefix(ctx, client, "jobs/1/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rest, err := client.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestMockBlobClient_FailNextUploads(t *testing.T) {
	client := NewMockBlobClient()
	client.FailNextUploads(1)

	_, err := client.Upload(context.Background(), "x", nil, UploadOptions{})
	assert.Error(t, err)
	_, err = client.Upload(context.Background(), "x", nil, UploadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 2, client.UploadCalls())
}
