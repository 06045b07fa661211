package blobclient

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// AzureConfig selects the account and container.
type AzureConfig struct {
	AccountName string
	// AccountKey enables shared key auth; without it the default Azure
	// credential chain (managed identity, CLI login, ...) is used.
	AccountKey string
	// ConnectionString takes precedence over the account settings; use it for
	// the Azurite emulator.
	ConnectionString string
	Container        string
	AccessTier       string
}

// AzureBlobClient implements BlobClient using Azure Blob Storage.
type AzureBlobClient struct {
	client     *azblob.Client
	container  string
	accessTier string
	logger     logging.Logger
}

// NewAzureBlobClient creates the client and makes sure the container exists.
func NewAzureBlobClient(ctx context.Context, cfg AzureConfig, logger logging.Logger) (*AzureBlobClient, error) {
	var (
		client *azblob.Client
		err    error
	)
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountKey != "":
		cred, cerr := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", cerr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	default:
		cred, cerr := azidentity.NewDefaultAzureCredential(nil)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", cerr)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, cfg.Container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container %s: %w", cfg.Container, err)
	}

	return &AzureBlobClient{
		client:     client,
		container:  cfg.Container,
		accessTier: cfg.AccessTier,
		logger: logger.With(
			logging.NewField("component", "blob"),
			logging.NewField("container", cfg.Container),
		),
	}, nil
}

// Upload uploads data to Azure Blob Storage.
func (a *AzureBlobClient) Upload(ctx context.Context, name string, data []byte, opts UploadOptions) (string, error) {
	logger := a.logger.With(
		logging.NewField("operation", "blob.upload"),
		logging.NewField("blob", name),
		logging.NewField("bytes", len(data)),
	)

	uploadOptions := &azblob.UploadBufferOptions{}
	if opts.ContentType != "" {
		uploadOptions.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &opts.ContentType}
	}
	tier := opts.AccessTier
	if tier == "" {
		tier = a.accessTier
	}
	if tier != "" {
		t := blob.AccessTier(tier)
		uploadOptions.AccessTier = &t
	}
	if len(opts.Metadata) > 0 {
		uploadOptions.Metadata = make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			v := v
			uploadOptions.Metadata[k] = &v
		}
	}

	if _, err := a.client.UploadBuffer(ctx, a.container, name, data, uploadOptions); err != nil {
		logger.Error("Failed to upload blob", logging.NewField("error", err))
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	url := a.url(name)
	logger.Debug("Blob uploaded", logging.NewField("url", url))
	return url, nil
}

// Download retrieves a blob from Azure Blob Storage.
func (a *AzureBlobClient) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, name)
		}
		a.logger.Error("Failed to download blob",
			logging.NewField("blob", name),
			logging.NewField("error", err))
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Delete deletes a blob from Azure Blob Storage.
func (a *AzureBlobClient) Delete(ctx context.Context, name string) error {
	_, err := a.client.DeleteBlob(ctx, a.container, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		a.logger.Error("Failed to delete blob",
			logging.NewField("blob", name),
			logging.NewField("error", err))
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// List lists blobs with the given prefix.
func (a *AzureBlobClient) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	var blobs []BlobInfo
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}

		for _, item := range page.Segment.BlobItems {
			info := BlobInfo{Name: *item.Name, URL: a.url(*item.Name)}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					info.Size = *p.ContentLength
				}
				if p.ContentType != nil {
					info.ContentType = *p.ContentType
				}
				if p.LastModified != nil {
					info.LastModified = *p.LastModified
				}
			}
			blobs = append(blobs, info)
		}
	}
	return blobs, nil
}

func (a *AzureBlobClient) url(name string) string {
	return a.client.URL() + a.container + "/" + name
}
