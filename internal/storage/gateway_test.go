package storage

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	FileStorage
	err error
}

func (f failingStorage) HeadObject(context.Context, string) (*ObjectInfo, error) {
	return nil, f.err
}

func (f failingStorage) DeleteObjects(context.Context, []string) (int, error) {
	return 0, f.err
}

func TestGateway_Keys(t *testing.T) {
	g := NewGateway(NewMemoryStorage("http://localhost", "s", 0), "uploads", 0)

	assert.Equal(t, "uploads/u1/", g.UserPrefix("u1"))
	assert.Equal(t, "uploads/u1/report.pdf", g.ObjectKey("u1", "report.pdf"))

	assert.True(t, g.Owns("u1", "uploads/u1/report.pdf"))
	assert.False(t, g.Owns("u1", "uploads/u10/report.pdf"))
	assert.False(t, g.Owns("u1", "uploads/u2/report.pdf"))
	assert.False(t, g.Owns("u1", "uploads/u1/"))
	assert.False(t, g.Owns("", "uploads//x"))
}

func TestGateway_IssueUploadURL(t *testing.T) {
	mem := NewMemoryStorage("http://files.local", "s", 0)
	g := NewGateway(mem, "uploads", time.Minute)

	url, key, err := g.IssueUploadURL(context.Background(), "u1", "report.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/report.pdf", key)
	assert.Contains(t, url, "http://files.local/blob/uploads/u1/report.pdf?")
}

func TestGateway_ListByPrefixFirstPageOnly(t *testing.T) {
	mem := NewMemoryStorage("http://localhost", "s", 2)
	for _, k := range []string{"uploads/u1/a", "uploads/u1/b", "uploads/u1/c"} {
		mem.Put(k, "", []byte("x"))
	}
	g := NewGateway(mem, "uploads", 0)

	objs, err := g.ListByPrefix(context.Background(), "uploads/u1/")
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	empty, err := g.ListByPrefix(context.Background(), "uploads/nobody/")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGateway_WrapsErrors(t *testing.T) {
	g := NewGateway(failingStorage{err: ErrObjectNotFound}, "uploads", 0)

	_, err := g.HeadObject(context.Background(), "uploads/u1/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpHeadObject, opErr.Op)

	boom := errors.New("connection reset")
	g = NewGateway(failingStorage{err: boom}, "uploads", 0)
	_, err = g.DeleteObjects(context.Background(), []string{"uploads/u1/a"})
	assert.ErrorIs(t, err, boom)
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpDeleteObjects, opErr.Op)
}

func TestGateway_ReadURLLivesOneHour(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mem := NewMemoryStorage("http://files.local", "s", 0)
	mem.SetClock(func() time.Time { return now })
	g := NewGateway(mem, "uploads", time.Minute)

	raw, err := g.IssueReadURL(context.Background(), "uploads/u1/report.pdf")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	exp, err := strconv.ParseInt(u.Query().Get("X-Expires"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).Unix(), exp)
}

func TestGateway_PagesWalksEveryObject(t *testing.T) {
	mem := NewMemoryStorage("http://localhost", "s", 2)
	want := []string{"uploads/u1/a", "uploads/u1/b", "uploads/u1/c", "uploads/u1/d", "uploads/u1/e"}
	for _, k := range want {
		mem.Put(k, "", []byte("x"))
	}
	mem.Put("uploads/u2/other", "", []byte("x"))
	g := NewGateway(mem, "uploads", 0)

	var got []string
	pages := 0
	lister := g.Pages(g.UserPrefix("u1"))
	for lister.HasMorePages() {
		page, err := lister.NextPage(context.Background())
		require.NoError(t, err)
		pages++
		for _, obj := range page.Objects {
			got = append(got, obj.Key)
		}
	}

	assert.Equal(t, want, got)
	assert.Equal(t, 3, pages)
}
