package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// DefaultContentType is used when a client does not report a MIME type.
// The upload URL is signed for it, so the client must send the same header.
const DefaultContentType = "application/octet-stream"

// FileRecord describes one object in a user's storage prefix.
// Nothing here is persisted by the application: the bucket listing is the source of truth,
// and URL/SizeLabel are recomputed every time a record is built.
type FileRecord struct {
	Key       string    `json:"fileKey"`    // uploads/{userId}/{fileName}
	Name      string    `json:"fileName"`   // last path segment of Key
	SizeLabel string    `json:"fileSize"`   // e.g. "2.00 KB"
	URL       string    `json:"url"`        // signed, time-limited read URL
	CreatedAt time.Time `json:"createdAt"`  // storage LastModified
	Selected  bool      `json:"isSelected"` // client-side UI flag only
}

// NewFileRecord builds a record from storage metadata and a freshly signed read URL.
func NewFileRecord(key string, size int64, lastModified time.Time, url string) FileRecord {
	return FileRecord{
		Key:       key,
		Name:      DisplayName(key),
		SizeLabel: SizeLabel(size),
		URL:       url,
		CreatedAt: lastModified.UTC(),
	}
}

// DisplayName returns the last segment of an object key.
func DisplayName(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return ""
	}
	return path.Base(key)
}

// SizeLabel renders a byte count in kilobytes with two decimals.
func SizeLabel(size int64) string {
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}
