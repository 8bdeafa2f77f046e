package storage

import (
	"context"
	"errors"
	"time"
)

// DefaultPresignedURLExpiry applies to upload URLs when no expiry is configured.
const DefaultPresignedURLExpiry = 15 * time.Minute

// ReadURLExpiry is the fixed lifetime of signed read URLs.
const ReadURLExpiry = time.Hour

// MaxDeleteBatch is the largest key set a single DeleteObjects call accepts (S3 limit).
const MaxDeleteBatch = 1000

var (
	ErrObjectNotFound = errors.New("object not found in storage")
	ErrTooManyKeys    = errors.New("too many keys for one delete batch")
)

// ObjectInfo is the metadata the bucket reports for one object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// ObjectPage is one page of a prefix listing.
type ObjectPage struct {
	Objects []ObjectInfo
	// Truncated reports that more objects exist beyond this page.
	Truncated bool
}

// ObjectLister walks a prefix listing one page at a time. Nothing is fetched until
// NextPage is called; a fresh lister from FileStorage.ListObjects restarts from the beginning.
type ObjectLister interface {
	HasMorePages() bool
	NextPage(ctx context.Context) (*ObjectPage, error)
}

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows a PUT of exactly
	// this key with this Content-Type.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// HeadObject returns the object's metadata or ErrObjectNotFound.
	HeadObject(ctx context.Context, objectKey string) (*ObjectInfo, error)

	// ListObjects returns a lazy lister over every key starting with prefix, in key order.
	ListObjects(prefix string) ObjectLister

	// DeleteObjects removes keys in one request and returns how many the backend
	// reported deleted. Missing keys are not an error.
	DeleteObjects(ctx context.Context, objectKeys []string) (int, error)
}
