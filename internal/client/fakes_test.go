package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dragbox/file-manager/internal/domain"
)

// fakeAPI is an in-memory FileAPI whose upload URLs point at a test blob server.
type fakeAPI struct {
	mu      sync.Mutex
	blobURL string
	files   map[string]domain.FileRecord
	calls   map[string]int

	listFn   func(ctx context.Context) ([]domain.FileRecord, error)
	getErr   error
	deleteFn func(keys []string) error
	ticketFn func(fileName string) (*UploadTicket, error)
}

func newFakeAPI(blobURL string) *fakeAPI {
	return &fakeAPI{
		blobURL: blobURL,
		files:   map[string]domain.FileRecord{},
		calls:   map[string]int{},
	}
}

func (f *fakeAPI) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) ListFiles(ctx context.Context) ([]domain.FileRecord, error) {
	f.record("list")
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.FileRecord{}
	for _, r := range f.files {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeAPI) RequestUploadURL(_ context.Context, fileName, _ string) (*UploadTicket, error) {
	f.record("uploadUrl")
	if f.ticketFn != nil {
		return f.ticketFn(fileName)
	}
	return &UploadTicket{UploadURL: f.blobURL + "/" + fileName, FileKey: "uploads/u1/" + fileName}, nil
}

func (f *fakeAPI) GetFile(_ context.Context, fileKey string) (*domain.FileRecord, error) {
	f.record("get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	r := domain.NewFileRecord(fileKey, 2048, time.Now(), "https://files.example/"+fileKey)
	return &r, nil
}

func (f *fakeAPI) DeleteFiles(_ context.Context, keys []string) error {
	f.record("delete")
	if f.deleteFn != nil {
		return f.deleteFn(keys)
	}
	return nil
}

// newBlobServer accepts PUTs and answers with status.
func newBlobServer(t *testing.T, status int) (*httptest.Server, *[][]byte) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies [][]byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, buf)
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

// manualTimers collects alert expiries so tests can fire them in any order.
type manualTimers struct {
	mu  sync.Mutex
	fns []func()
}

func (m *manualTimers) afterFunc(_ time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, f)
}

func (m *manualTimers) fire(i int) {
	m.mu.Lock()
	f := m.fns[i]
	m.mu.Unlock()
	f()
}

func record(key string, created time.Time) domain.FileRecord {
	return domain.NewFileRecord(key, 1024, created, "https://files.example/"+key)
}
