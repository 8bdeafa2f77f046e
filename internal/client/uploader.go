package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"dragbox/file-manager/internal/domain"
)

// FileHandle is one file chosen by the user.
type FileHandle struct {
	Name        string
	ContentType string
	Size        int64 // bytes; 0 when unknown
	Body        io.Reader
}

// ProgressFunc receives the transferred fraction, from 0 to 1, never decreasing.
type ProgressFunc func(fraction float64)

// Uploader moves a file straight from the client to object storage: it asks the
// service for a signed URL, PUTs the bytes there, then fetches the new record.
type Uploader struct {
	api  FileAPI
	http *http.Client
}

// NewUploader creates an Uploader. The transfer uses httpClient (nil for the default),
// which never carries the session token: the signed URL is the only credential storage sees.
func NewUploader(api FileAPI, httpClient *http.Client) *Uploader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Uploader{api: api, http: httpClient}
}

// Upload runs the whole flow for one file. Failures before or during the transfer
// wrap ErrUploadFailed; a failed lookup of the stored object wraps ErrRecordFetch. onStart, if set, is called once the signed
// URL has been obtained and the transfer is about to begin.
func (u *Uploader) Upload(ctx context.Context, f FileHandle, onStart func(), onProgress ProgressFunc) (*domain.FileRecord, error) {
	contentType := f.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}

	ticket, err := u.api.RequestUploadURL(ctx, f.Name, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if onStart != nil {
		onStart()
	}

	if err := u.transfer(ctx, ticket.UploadURL, contentType, f, onProgress); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	record, err := u.api.GetFile(ctx, ticket.FileKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecordFetch, err)
	}
	return record, nil
}

func (u *Uploader) transfer(ctx context.Context, uploadURL, contentType string, f FileHandle, onProgress ProgressFunc) error {
	body, size := f.Body, f.Size
	if body == nil {
		body, size = http.NoBody, 0
	} else if size <= 0 {
		// Storage wants a length up front; buffer bodies of unknown size.
		buf, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		body, size = bytes.NewReader(buf), int64(len(buf))
	}
	pr := &progressReader{r: body, total: size, report: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, pr)
	if err != nil {
		return err
	}
	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("storage answered %s", resp.Status)
	}
	pr.finish()
	return nil
}

// progressReader reports loaded/total as bytes are consumed. A total of zero or less
// counts as 1 so the fraction stays defined.
type progressReader struct {
	r      io.Reader
	total  int64
	report ProgressFunc

	mu     sync.Mutex
	loaded int64
	last   float64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.loaded += int64(n)
		p.emit(fraction(p.loaded, p.total))
		p.mu.Unlock()
	}
	return n, err
}

func (p *progressReader) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(1)
}

func (p *progressReader) emit(f float64) {
	if p.report == nil || f <= p.last {
		return
	}
	p.last = f
	p.report(f)
}

func fraction(loaded, total int64) float64 {
	if total <= 0 {
		total = 1
	}
	f := float64(loaded) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}
