package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"dragbox/file-manager/internal/api"
	"dragbox/file-manager/internal/domain"
	"dragbox/file-manager/internal/repository"
	"dragbox/file-manager/internal/service"
	"dragbox/file-manager/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (r *memUsers) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	r.users[user.Email] = *user
	return user.ID, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[email]; ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByID(context.Context, primitive.ObjectID) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

// newFileService starts the full HTTP service on the in-memory backend.
func newFileService(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	mem := storage.NewMemoryStorage(srv.URL, "blob-secret", 0)
	gw := storage.NewGateway(mem, "uploads", 0)
	auth := service.NewAuthService(&memUsers{users: map[string]domain.User{}}, "jwt-secret", time.Hour)

	router := gin.New()
	api.SetupRoutes(router, auth, service.NewFileService(gw), mem, false)
	handler = router
	return srv.URL
}

func signedIn(t *testing.T, baseURL, email string) *Client {
	t.Helper()
	ctx := context.Background()
	anon := New(baseURL, "", nil)
	require.NoError(t, anon.Register(ctx, "Test", email, "password123"))
	token, err := anon.Login(ctx, email, "password123")
	require.NoError(t, err)
	return New(baseURL, token, nil)
}

func TestClientEndToEnd(t *testing.T) {
	baseURL := newFileService(t)
	c := signedIn(t, baseURL, "u1@example.com")
	ctx := context.Background()

	files, err := c.ListFiles(ctx)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)

	var progress progressLog
	rec, err := NewUploader(c, nil).Upload(ctx, FileHandle{
		Name:        "report.pdf",
		ContentType: "application/pdf",
		Size:        2048,
		Body:        bytes.NewReader(make([]byte, 2048)),
	}, nil, progress.add)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", rec.Name)
	assert.Equal(t, "2.00 KB", rec.SizeLabel)
	assert.Equal(t, 1.0, progress.values[len(progress.values)-1])

	// The read URL serves the uploaded bytes without a session.
	resp, err := http.Get(rec.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	files, err = c.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, rec.Key, files[0].Key)

	require.NoError(t, c.DeleteFiles(ctx, []string{rec.Key}))
	files, err = c.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestClientErrors(t *testing.T) {
	baseURL := newFileService(t)
	ctx := context.Background()

	_, err := New(baseURL, "", nil).ListFiles(ctx)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = New(baseURL, "not-a-token", nil).ListFiles(ctx)
	assert.ErrorIs(t, err, ErrAuthRequired)

	c := signedIn(t, baseURL, "u2@example.com")
	_, err = New(baseURL, "", nil).Login(ctx, "u2@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = c.DeleteFiles(ctx, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, err = c.GetFile(ctx, "uploads/someone-else/x.txt")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestDashboardAgainstService(t *testing.T) {
	baseURL := newFileService(t)
	c := signedIn(t, baseURL, "u3@example.com")
	d := NewDashboard(c, NewUploader(c, nil), nil)
	d.store.afterFunc = func(time.Duration, func()) {}
	ctx := context.Background()

	require.NoError(t, d.Mount(ctx))
	for _, name := range []string{"first.txt", "second.txt"} {
		require.NoError(t, d.Drop(ctx, []FileHandle{{Name: name, ContentType: "text/plain", Size: 2, Body: bytes.NewBufferString("hi")}}))
	}
	require.Len(t, d.Store().Snapshot().Files, 2)

	d.SelectAll(true)
	require.NoError(t, d.DeleteSelected(ctx))
	assert.Empty(t, d.Store().Snapshot().Files)

	require.NoError(t, d.Mount(ctx))
	assert.Empty(t, d.Store().Snapshot().Files)
}

func TestUploadWithoutSessionIsAuthRequired(t *testing.T) {
	baseURL := newFileService(t)
	anon := New(baseURL, "", nil)
	ctx := context.Background()
	file := func() FileHandle {
		return FileHandle{Name: "report.pdf", ContentType: "application/pdf", Size: 3, Body: bytes.NewBufferString("pdf")}
	}

	started := false
	_, err := NewUploader(anon, nil).Upload(ctx, file(), func() { started = true }, nil)
	require.ErrorIs(t, err, ErrAuthRequired)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.False(t, started)

	d := NewDashboard(anon, NewUploader(anon, nil), nil)
	d.store.afterFunc = func(time.Duration, func()) {}

	err = d.Drop(ctx, []FileHandle{file()})
	require.ErrorIs(t, err, ErrAuthRequired)

	s := d.Store().Snapshot()
	assert.False(t, s.Uploading)
	assert.Empty(t, s.Files)
	require.NotNil(t, s.Alert)
	assert.Equal(t, MsgUploadFailed, s.Alert.Message)
}
