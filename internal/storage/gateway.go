package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storageOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dragbox_storage_operations_total",
		Help: "Object storage calls made by the gateway, by operation and result.",
	},
	[]string{"op", "result"},
)

// Gateway operation names, as carried by OpError.
const (
	OpIssueUploadURL = "issueUploadUrl"
	OpIssueReadURL   = "issueReadUrl"
	OpHeadObject     = "headObject"
	OpListByPrefix   = "listByPrefix"
	OpDeleteObjects  = "deleteObjects"
)

// OpError is returned for every failed storage call. The cause stays reachable through
// errors.Is / errors.As (e.g. ErrObjectNotFound).
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Gateway scopes object storage to per-user key prefixes ({root}/{userId}/) and hands
// out signed URLs with fixed lifetimes. It never retries.
type Gateway struct {
	store        FileStorage
	root         string
	uploadExpiry time.Duration
}

// NewGateway wraps store. A zero uploadExpiry falls back to DefaultPresignedURLExpiry;
// read URLs always live for ReadURLExpiry.
func NewGateway(store FileStorage, rootPrefix string, uploadExpiry time.Duration) *Gateway {
	if rootPrefix == "" {
		rootPrefix = "uploads"
	}
	if uploadExpiry <= 0 {
		uploadExpiry = DefaultPresignedURLExpiry
	}
	return &Gateway{
		store:        store,
		root:         strings.Trim(rootPrefix, "/"),
		uploadExpiry: uploadExpiry,
	}
}

// UserPrefix is the key prefix every object of userID lives under.
func (g *Gateway) UserPrefix(userID string) string {
	return g.root + "/" + userID + "/"
}

// ObjectKey builds the key a file named fileName gets for userID.
func (g *Gateway) ObjectKey(userID, fileName string) string {
	return g.UserPrefix(userID) + fileName
}

// Owns reports whether key lies inside userID's prefix.
func (g *Gateway) Owns(userID, key string) bool {
	if userID == "" {
		return false
	}
	prefix := g.UserPrefix(userID)
	return len(key) > len(prefix) && strings.HasPrefix(key, prefix)
}

// IssueUploadURL signs a PUT for {root}/{userId}/{fileName}. An existing object with the
// same key is overwritten by the upload.
func (g *Gateway) IssueUploadURL(ctx context.Context, userID, fileName, contentType string) (string, string, error) {
	key := g.ObjectKey(userID, fileName)
	url, err := g.store.GeneratePresignedUploadURL(ctx, key, contentType, g.uploadExpiry)
	if err != nil {
		return "", "", g.fail(OpIssueUploadURL, key, err)
	}
	g.ok(OpIssueUploadURL)
	return url, key, nil
}

// IssueReadURL signs a GET for key. Callers must have checked ownership.
func (g *Gateway) IssueReadURL(ctx context.Context, key string) (string, error) {
	url, err := g.store.GeneratePresignedDownloadURL(ctx, key, ReadURLExpiry)
	if err != nil {
		return "", g.fail(OpIssueReadURL, key, err)
	}
	g.ok(OpIssueReadURL)
	return url, nil
}

// HeadObject returns size and last-modified time of key.
func (g *Gateway) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := g.store.HeadObject(ctx, key)
	if err != nil {
		return nil, g.fail(OpHeadObject, key, err)
	}
	g.ok(OpHeadObject)
	return info, nil
}

// ListByPrefix returns the first page of objects under prefix. Objects beyond the
// backend's page size are omitted.
func (g *Gateway) ListByPrefix(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	lister := g.store.ListObjects(prefix)
	if !lister.HasMorePages() {
		g.ok(OpListByPrefix)
		return []ObjectInfo{}, nil
	}

	page, err := lister.NextPage(ctx)
	if err != nil {
		return nil, g.fail(OpListByPrefix, prefix, err)
	}
	g.ok(OpListByPrefix)

	if page.Truncated {
		log.Printf("WARN: Listing of '%s' truncated after %d objects; remaining objects omitted", prefix, len(page.Objects))
	}
	if page.Objects == nil {
		return []ObjectInfo{}, nil
	}
	return page.Objects, nil
}

// Pages exposes the full paged listing under prefix.
func (g *Gateway) Pages(prefix string) ObjectLister {
	return g.store.ListObjects(prefix)
}

// DeleteObjects removes keys in one batch.
func (g *Gateway) DeleteObjects(ctx context.Context, keys []string) (int, error) {
	n, err := g.store.DeleteObjects(ctx, keys)
	if err != nil {
		return 0, g.fail(OpDeleteObjects, strings.Join(keys, ","), err)
	}
	g.ok(OpDeleteObjects)
	return n, nil
}

func (g *Gateway) ok(op string) {
	storageOperationsTotal.WithLabelValues(op, "ok").Inc()
}

func (g *Gateway) fail(op, subject string, err error) error {
	result := "error"
	if errors.Is(err, ErrObjectNotFound) {
		result = "not_found"
	}
	storageOperationsTotal.WithLabelValues(op, result).Inc()
	log.Printf("ERROR: Storage %s for '%s' failed: %v", op, subject, err)
	return &OpError{Op: op, Err: err}
}
