package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"dragbox/file-manager/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClipboard struct{ text string }

func (c *memClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

func newTestDashboard(t *testing.T, api *fakeAPI, httpClient *http.Client) (*Dashboard, *memClipboard, *[]string) {
	t.Helper()
	clip := &memClipboard{}
	d := NewDashboard(api, NewUploader(api, httpClient), clip)

	var messages []string
	d.store.afterFunc = func(_ time.Duration, _ func()) {}
	d.store.Subscribe(func(s State) {
		if s.Alert != nil && (len(messages) == 0 || messages[len(messages)-1] != s.Alert.Message) {
			messages = append(messages, s.Alert.Message)
		}
	})
	return d, clip, &messages
}

func TestDashboardMountAndUpload(t *testing.T) {
	blobs, _ := newBlobServer(t, http.StatusOK)
	api := newFakeAPI(blobs.URL)
	api.files["uploads/u1/old.txt"] = record("uploads/u1/old.txt", t0)
	d, _, messages := newTestDashboard(t, api, blobs.Client())

	require.NoError(t, d.Mount(context.Background()))
	require.NoError(t, d.Drop(context.Background(), []FileHandle{
		{Name: "report.pdf", ContentType: "application/pdf", Size: 2048, Body: bytes.NewReader(make([]byte, 2048))},
		{Name: "ignored.txt", Size: 1, Body: bytes.NewBufferString("x")},
	}))

	s := d.Store().Snapshot()
	assert.Equal(t, []string{"uploads/u1/report.pdf", "uploads/u1/old.txt"}, keys(s.Files))
	assert.Equal(t, "2.00 KB", s.Files[0].SizeLabel)
	assert.False(t, s.Uploading)
	assert.Equal(t, 0, s.Progress)
	assert.Equal(t, 1, api.called("uploadUrl"))
	assert.Equal(t, []string{MsgUploadBegun, MsgUploadSucceeded}, *messages)
}

func TestDashboardUploadDuringSlowListing(t *testing.T) {
	blobs, _ := newBlobServer(t, http.StatusOK)
	api := newFakeAPI(blobs.URL)

	release := make(chan struct{})
	listing := make(chan struct{})
	api.listFn = func(ctx context.Context) ([]domain.FileRecord, error) {
		close(listing)
		<-release
		// Snapshot taken before the upload landed.
		return []domain.FileRecord{record("uploads/u1/old.txt", t0)}, nil
	}
	d, _, _ := newTestDashboard(t, api, blobs.Client())

	mounted := make(chan error, 1)
	go func() { mounted <- d.Mount(context.Background()) }()
	<-listing

	require.NoError(t, d.Drop(context.Background(), []FileHandle{{Name: "new.txt", Size: 1, Body: bytes.NewBufferString("n")}}))
	close(release)
	require.NoError(t, <-mounted)

	assert.ElementsMatch(t, []string{"uploads/u1/new.txt", "uploads/u1/old.txt"}, keys(d.Store().Snapshot().Files))
}

func TestDashboardRejectsSecondUpload(t *testing.T) {
	blobs, _ := newBlobServer(t, http.StatusOK)
	api := newFakeAPI(blobs.URL)

	inFlight := make(chan struct{})
	release := make(chan struct{})
	api.ticketFn = func(fileName string) (*UploadTicket, error) {
		close(inFlight)
		<-release
		return &UploadTicket{UploadURL: blobs.URL + "/" + fileName, FileKey: "uploads/u1/" + fileName}, nil
	}
	d, _, messages := newTestDashboard(t, api, blobs.Client())

	first := make(chan error, 1)
	go func() {
		first <- d.Drop(context.Background(), []FileHandle{{Name: "a.txt", Size: 1, Body: bytes.NewBufferString("a")}})
	}()
	<-inFlight

	err := d.Drop(context.Background(), []FileHandle{{Name: "b.txt", Size: 1, Body: bytes.NewBufferString("b")}})
	require.ErrorIs(t, err, ErrUploadInProgress)
	assert.Contains(t, *messages, MsgUploadBusy)

	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, 1, api.called("uploadUrl"))
}

func TestDashboardUploadFailures(t *testing.T) {
	t.Run("transfer", func(t *testing.T) {
		blobs, _ := newBlobServer(t, http.StatusForbidden)
		api := newFakeAPI(blobs.URL)
		d, _, messages := newTestDashboard(t, api, blobs.Client())

		err := d.Drop(context.Background(), []FileHandle{{Name: "a.txt", Size: 1, Body: bytes.NewBufferString("a")}})
		require.ErrorIs(t, err, ErrUploadFailed)
		assert.Equal(t, []string{MsgUploadBegun, MsgUploadFailed}, *messages)
		assert.Equal(t, 0, api.called("get"))
		assert.Empty(t, d.Store().Snapshot().Files)
		assert.False(t, d.Store().Snapshot().Uploading)
	})

	t.Run("lookup", func(t *testing.T) {
		blobs, _ := newBlobServer(t, http.StatusOK)
		api := newFakeAPI(blobs.URL)
		api.getErr = errors.New("boom")
		d, _, messages := newTestDashboard(t, api, blobs.Client())

		err := d.Drop(context.Background(), []FileHandle{{Name: "a.txt", Size: 1, Body: bytes.NewBufferString("a")}})
		require.ErrorIs(t, err, ErrRecordFetch)
		assert.Equal(t, []string{MsgUploadBegun, MsgFileURLFailed}, *messages)
		assert.Equal(t, 0, d.Store().Snapshot().Progress)
	})
}

func TestDashboardMountFailure(t *testing.T) {
	api := newFakeAPI("")
	api.listFn = func(context.Context) ([]domain.FileRecord, error) { return nil, ErrAuthRequired }
	d, _, messages := newTestDashboard(t, api, nil)

	require.ErrorIs(t, d.Mount(context.Background()), ErrAuthRequired)
	assert.False(t, d.Store().Snapshot().Loading)
	assert.Equal(t, []string{MsgFetchFailed}, *messages)
}

func TestDashboardDeleteSelected(t *testing.T) {
	api := newFakeAPI("")
	for _, k := range []string{"uploads/u1/a", "uploads/u1/b", "uploads/u1/c"} {
		api.files[k] = record(k, t0)
	}
	var deleted []string
	api.deleteFn = func(keys []string) error {
		deleted = keys
		return nil
	}
	d, _, messages := newTestDashboard(t, api, nil)
	require.NoError(t, d.Mount(context.Background()))

	require.ErrorIs(t, d.DeleteSelected(context.Background()), ErrNothingSelected)
	assert.Equal(t, 0, api.called("delete"))
	assert.Equal(t, []string{MsgNoneSelected}, *messages)

	files := d.Store().Snapshot().Files
	target := files[1].Key
	d.ToggleSelection(1)
	require.NoError(t, d.DeleteSelected(context.Background()))

	assert.Equal(t, []string{target}, deleted)
	s := d.Store().Snapshot()
	assert.Len(t, s.Files, 2)
	assert.NotContains(t, keys(s.Files), target)
	assert.False(t, s.Loading)
	assert.Equal(t, MsgDeleted, s.Alert.Message)
}

func TestDashboardDeleteFailureKeepsRecords(t *testing.T) {
	api := newFakeAPI("")
	api.files["uploads/u1/a"] = record("uploads/u1/a", t0)
	api.deleteFn = func([]string) error { return &APIError{Status: http.StatusInternalServerError, Message: "Error deleting files"} }
	d, _, _ := newTestDashboard(t, api, nil)
	require.NoError(t, d.Mount(context.Background()))

	d.SelectAll(true)
	require.Error(t, d.DeleteSelected(context.Background()))

	s := d.Store().Snapshot()
	assert.Equal(t, []string{"uploads/u1/a"}, s.Selected())
	assert.Equal(t, MsgDeleteFailed, s.Alert.Message)
	assert.Equal(t, LevelError, s.Alert.Level)
}

func TestDashboardCopyLink(t *testing.T) {
	api := newFakeAPI("")
	api.files["uploads/u1/a"] = record("uploads/u1/a", t0)
	d, clip, _ := newTestDashboard(t, api, nil)
	require.NoError(t, d.Mount(context.Background()))

	require.NoError(t, d.CopyLink(0))
	assert.Equal(t, "https://files.example/uploads/u1/a", clip.text)
	assert.Equal(t, MsgURLCopied, d.Store().Snapshot().Alert.Message)

	assert.Error(t, d.CopyLink(3))
}
