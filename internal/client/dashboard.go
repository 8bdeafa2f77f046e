package client

import (
	"context"
	"errors"
	"log"
)

// Status messages shown by the dashboard.
const (
	MsgFetchFailed     = "Failed to fetch files."
	MsgUploadBegun     = "Upload has begun."
	MsgUploadFailed    = "Failed to upload file."
	MsgUploadSucceeded = "File uploaded successfully!"
	MsgFileURLFailed   = "Failed to get file URL."
	MsgURLCopied       = "URL copied to clipboard!"
	MsgNoneSelected    = "No files selected for deletion."
	MsgDeleted         = "Selected files deleted successfully."
	MsgDeleteFailed    = "Failed to delete selected files."
	MsgUploadBusy      = "An upload is already in progress."
)

var (
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrNothingSelected  = errors.New("no files selected")
)

// Clipboard receives copied links.
type Clipboard interface {
	WriteText(text string) error
}

// Dashboard is the file view: it owns a Store and runs the list, upload, delete and
// copy-link flows against the file service.
type Dashboard struct {
	api       FileAPI
	uploader  *Uploader
	store     *Store
	clipboard Clipboard
}

// NewDashboard wires a dashboard. clipboard may be nil when links are never copied.
func NewDashboard(api FileAPI, uploader *Uploader, clipboard Clipboard) *Dashboard {
	return &Dashboard{
		api:       api,
		uploader:  uploader,
		store:     NewStore(),
		clipboard: clipboard,
	}
}

// Store exposes the dashboard state for rendering.
func (d *Dashboard) Store() *Store { return d.store }

// Mount loads the file list. It may run concurrently with Drop; records uploaded
// while the listing is in flight survive its arrival.
func (d *Dashboard) Mount(ctx context.Context) error {
	since := d.store.Dispatch(ListStarted{}).Version()

	files, err := d.api.ListFiles(ctx)
	if err != nil {
		log.Printf("ERROR: Failed to fetch files: %v", err)
		d.store.Dispatch(ListFailed{})
		d.store.ShowAlert(MsgFetchFailed, LevelError)
		return err
	}
	d.store.Dispatch(ListLoaded{Since: since, Files: files})
	return nil
}

// Drop uploads the first of files; the rest are ignored. Only one upload runs at a time.
func (d *Dashboard) Drop(ctx context.Context, files []FileHandle) error {
	if len(files) == 0 {
		return nil
	}
	f := files[0]

	idle := func(s State) bool { return !s.Uploading }
	if _, ok := d.store.DispatchIf(idle, UploadStarted{}); !ok {
		d.store.ShowAlert(MsgUploadBusy, LevelWarning)
		return ErrUploadInProgress
	}

	record, err := d.uploader.Upload(ctx, f,
		func() { d.store.ShowAlert(MsgUploadBegun, LevelInfo) },
		func(fraction float64) { d.store.Dispatch(UploadProgressed{Fraction: fraction}) },
	)
	switch {
	case errors.Is(err, ErrRecordFetch):
		log.Printf("ERROR: Failed to get file URL for '%s': %v", f.Name, err)
		d.store.ShowAlert(MsgFileURLFailed, LevelError)
		d.store.Dispatch(UploadFinished{})
		return err
	case err != nil:
		log.Printf("ERROR: Failed to upload file '%s': %v", f.Name, err)
		d.store.ShowAlert(MsgUploadFailed, LevelError)
		d.store.Dispatch(UploadFinished{KeepProgress: true})
		return err
	}

	d.store.Dispatch(FileUploaded{File: *record})
	d.store.ShowAlert(MsgUploadSucceeded, LevelSuccess)
	d.store.Dispatch(UploadFinished{})
	return nil
}

// ToggleSelection flips the selection of the record at index.
func (d *Dashboard) ToggleSelection(index int) {
	d.store.Dispatch(ToggleSelection{Index: index})
}

// SelectAll selects or clears every record.
func (d *Dashboard) SelectAll(selected bool) {
	d.store.Dispatch(SelectAll{Selected: selected})
}

// DeleteSelected deletes the selected records. They leave the list only once the
// service has confirmed the delete.
func (d *Dashboard) DeleteSelected(ctx context.Context) error {
	keys := d.store.Snapshot().Selected()
	if len(keys) == 0 {
		d.store.ShowAlert(MsgNoneSelected, LevelWarning)
		return ErrNothingSelected
	}

	d.store.Dispatch(DeleteStarted{})
	defer d.store.Dispatch(DeleteFinished{})

	if err := d.api.DeleteFiles(ctx, keys); err != nil {
		log.Printf("ERROR: Failed to delete files: %v", err)
		d.store.ShowAlert(MsgDeleteFailed, LevelError)
		return err
	}
	d.store.Dispatch(FilesDeleted{Keys: keys})
	d.store.ShowAlert(MsgDeleted, LevelSuccess)
	return nil
}

// CopyLink writes the access URL of the record at index to the clipboard.
func (d *Dashboard) CopyLink(index int) error {
	files := d.store.Snapshot().Files
	if index < 0 || index >= len(files) {
		return errors.New("no file at that position")
	}
	if d.clipboard == nil {
		return errors.New("no clipboard available")
	}
	if err := d.clipboard.WriteText(files[index].URL); err != nil {
		return err
	}
	d.store.ShowAlert(MsgURLCopied, LevelSuccess)
	return nil
}
