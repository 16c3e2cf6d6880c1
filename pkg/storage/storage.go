// Package storage archives blobs such as raw evidence bundles in Azure Blob Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/verity/pkg/lifecycle"
)

// Object is an archived blob opened for reading. The caller closes Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// System is a key-addressed blob archive bound to one container.
type System interface {
	// Start registers a startup hook that ensures the container exists.
	Start(lc *lifecycle.Coordinator) error
	// Put writes data under key, replacing any existing blob.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get opens the blob under key. Returns ErrNotFound when it does not exist.
	Get(ctx context.Context, key string) (*Object, error)
	// Delete removes the blob under key. Returns ErrNotFound when it does not exist.
	Delete(ctx context.Context, key string) error
}

type container struct {
	client *azblob.Client
	name   string
	logger *slog.Logger
}

// New builds the blob client from cfg. No request is made until the
// lifecycle runs the startup hook registered by Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &container{
		client: client,
		name:   cfg.ContainerName,
		logger: logger.With("system", "storage", "container", cfg.ContainerName),
	}, nil
}

func (c *container) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("storage", func(ctx context.Context) error {
		_, err := c.client.CreateContainer(ctx, c.name, nil)
		switch {
		case err == nil:
			c.logger.Info("storage container created")
		case bloberror.HasCode(err, bloberror.ContainerAlreadyExists):
			c.logger.Info("storage container ready")
		default:
			return fmt.Errorf("create container %s: %w", c.name, err)
		}
		return nil
	})
	return nil
}

func (c *container) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := c.client.UploadBuffer(ctx, c.name, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return classify("put", key, err)
	}

	c.logger.Debug("blob stored", "key", key, "bytes", len(data))
	return nil
}

func (c *container) Get(ctx context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := c.client.DownloadStream(ctx, c.name, key, nil)
	if err != nil {
		return nil, classify("get", key, err)
	}

	obj := &Object{Body: resp.Body, ContentType: "application/octet-stream"}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		obj.Size = *resp.ContentLength
	}
	return obj, nil
}

func (c *container) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := c.client.DeleteBlob(ctx, c.name, key, nil); err != nil {
		return classify("delete", key, err)
	}
	return nil
}

func classify(op, key string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("%s %s: %w", op, key, ErrNotFound)
	}
	return fmt.Errorf("%s blob %s: %w", op, key, err)
}

// validateKey rejects keys that are empty, absolute, contain backslashes, or
// carry "." or ".." segments.
func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return ErrInvalidKey
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == ".." || seg == "." {
			return ErrInvalidKey
		}
	}
	return nil
}
