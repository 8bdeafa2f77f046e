package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BlobPathPrefix is where the application mounts MemoryStorage's signed-URL endpoint.
const BlobPathPrefix = "/blob"

// Query parameters of a memory-backend signed URL.
const (
	paramExpires     = "X-Expires"
	paramContentType = "X-Content-Type"
	paramSignature   = "X-Signature"
)

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// MemoryStorage is an in-process bucket. Signed URLs point back at the application
// (BlobPathPrefix) and are HMAC-signed over method, key, content type and expiry, so
// clients exercise the same direct-transfer flow they would against S3.
type MemoryStorage struct {
	mu       sync.RWMutex
	objects  map[string]memoryObject
	baseURL  string
	secret   []byte
	pageSize int
	now      func() time.Time
}

// NewMemoryStorage creates an empty bucket whose signed URLs start with baseURL.
func NewMemoryStorage(baseURL, signingSecret string, pageSize int) *MemoryStorage {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &MemoryStorage{
		objects:  make(map[string]memoryObject),
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   []byte(signingSecret),
		pageSize: pageSize,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for expiry checks and LastModified stamps.
func (m *MemoryStorage) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Put stores an object directly, bypassing signed URLs.
func (m *MemoryStorage) Put(objectKey, contentType string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = memoryObject{
		data:         append([]byte(nil), data...),
		contentType:  contentType,
		lastModified: m.now().UTC().Truncate(time.Second),
	}
}

func (m *MemoryStorage) GeneratePresignedUploadURL(_ context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	return m.sign(http.MethodPut, objectKey, contentType, expires), nil
}

func (m *MemoryStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = ReadURLExpiry
	}
	return m.sign(http.MethodGet, objectKey, "", expires), nil
}

func (m *MemoryStorage) HeadObject(_ context.Context, objectKey string) (*ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[objectKey]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &ObjectInfo{
		Key:          objectKey,
		Size:         int64(len(obj.data)),
		LastModified: obj.lastModified,
		ContentType:  obj.contentType,
	}, nil
}

func (m *MemoryStorage) ListObjects(prefix string) ObjectLister {
	return &memoryLister{store: m, prefix: prefix, more: true}
}

func (m *MemoryStorage) DeleteObjects(_ context.Context, objectKeys []string) (int, error) {
	if len(objectKeys) > MaxDeleteBatch {
		return 0, ErrTooManyKeys
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// S3 reports absent keys as deleted too.
	for _, key := range objectKeys {
		delete(m.objects, key)
	}
	return len(objectKeys), nil
}

// ServeBlob answers a request made with one of this store's signed URLs.
// objectKey is the decoded path below BlobPathPrefix.
func (m *MemoryStorage) ServeBlob(w http.ResponseWriter, r *http.Request, objectKey string) {
	q := r.URL.Query()
	contentType := q.Get(paramContentType)

	if err := m.verify(r.Method, objectKey, contentType, q.Get(paramExpires), q.Get(paramSignature)); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	switch r.Method {
	case http.MethodPut:
		if r.Header.Get("Content-Type") != contentType {
			http.Error(w, "content type does not match signature", http.StatusForbidden)
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		m.Put(objectKey, contentType, data)
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		m.mu.RLock()
		obj, ok := m.objects[objectKey]
		m.mu.RUnlock()
		if !ok {
			http.Error(w, "no such key", http.StatusNotFound)
			return
		}
		if obj.contentType != "" {
			w.Header().Set("Content-Type", obj.contentType)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.Header().Set("Last-Modified", obj.lastModified.Format(http.TimeFormat))
		_, _ = w.Write(obj.data)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (m *MemoryStorage) sign(method, objectKey, contentType string, expires time.Duration) string {
	m.mu.RLock()
	exp := strconv.FormatInt(m.now().Add(expires).Unix(), 10)
	m.mu.RUnlock()

	q := url.Values{}
	q.Set(paramExpires, exp)
	if method == http.MethodPut {
		q.Set(paramContentType, contentType)
	}
	q.Set(paramSignature, m.signature(method, objectKey, contentType, exp))

	return m.baseURL + BlobPathPrefix + "/" + escapeKey(objectKey) + "?" + q.Encode()
}

func (m *MemoryStorage) verify(method, objectKey, contentType, exp, sig string) error {
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expiry")
	}
	m.mu.RLock()
	now := m.now()
	m.mu.RUnlock()
	if now.Unix() > expUnix {
		return fmt.Errorf("request has expired")
	}

	want := m.signature(method, objectKey, contentType, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return fmt.Errorf("signature does not match")
	}
	return nil
}

func (m *MemoryStorage) signature(method, objectKey, contentType, exp string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(method + "\n" + objectKey + "\n" + contentType + "\n" + exp))
	return hex.EncodeToString(mac.Sum(nil))
}

func escapeKey(objectKey string) string {
	segments := strings.Split(objectKey, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// memoryLister pages through a snapshot-free view of the map: each page re-reads the
// keys after the last one returned, so concurrent writes show up in later pages.
type memoryLister struct {
	store  *MemoryStorage
	prefix string
	after  string
	more   bool
}

func (l *memoryLister) HasMorePages() bool {
	return l.more
}

func (l *memoryLister) NextPage(ctx context.Context) (*ObjectPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.more {
		return nil, fmt.Errorf("no more pages")
	}

	l.store.mu.RLock()
	keys := make([]string, 0)
	for key := range l.store.objects {
		if strings.HasPrefix(key, l.prefix) && key > l.after {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	page := &ObjectPage{}
	if len(keys) > l.store.pageSize {
		keys = keys[:l.store.pageSize]
		page.Truncated = true
	}
	for _, key := range keys {
		obj := l.store.objects[key]
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
			ContentType:  obj.contentType,
		})
	}
	l.store.mu.RUnlock()

	l.more = page.Truncated
	if len(keys) > 0 {
		l.after = keys[len(keys)-1]
	}
	return page, nil
}
