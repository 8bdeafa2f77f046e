package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"dragbox/file-manager/internal/domain"
)

var (
	ErrAuthRequired = errors.New("sign-in required")
	ErrUploadFailed = errors.New("upload failed")
	ErrRecordFetch  = errors.New("uploaded file lookup failed")

	ErrInvalidCredentials = errors.New("invalid email or password")
)

// APIError is a non-2xx answer from the file service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("file service returned %d: %s", e.Status, e.Message)
}

// UploadTicket is the signed URL and resulting key for one upload.
type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
}

// FileAPI is the subset of the service the dashboard depends on.
type FileAPI interface {
	ListFiles(ctx context.Context) ([]domain.FileRecord, error)
	RequestUploadURL(ctx context.Context, fileName, fileType string) (*UploadTicket, error)
	GetFile(ctx context.Context, fileKey string) (*domain.FileRecord, error)
	DeleteFiles(ctx context.Context, fileKeys []string) error
}

// Client talks to the file service over HTTP with a bearer session token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the service at baseURL. httpClient may be nil.
// Redirects are never followed: the service answers an absent session with a
// redirect to its sign-in page, which is reported as ErrAuthRequired.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	hc := *httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &hc,
	}
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/register", body, nil)
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		if errors.Is(err, ErrAuthRequired) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	return out.Token, nil
}

func (c *Client) ListFiles(ctx context.Context) ([]domain.FileRecord, error) {
	var out struct {
		Files []domain.FileRecord `json:"files"`
	}
	if err := c.do(ctx, http.MethodGet, "/files", nil, &out); err != nil {
		return nil, err
	}
	if out.Files == nil {
		out.Files = []domain.FileRecord{}
	}
	return out.Files, nil
}

func (c *Client) RequestUploadURL(ctx context.Context, fileName, fileType string) (*UploadTicket, error) {
	var out UploadTicket
	body := map[string]string{"fileName": fileName, "fileType": fileType}
	if err := c.do(ctx, http.MethodPost, "/upload-url", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFile(ctx context.Context, fileKey string) (*domain.FileRecord, error) {
	var out domain.FileRecord
	if err := c.do(ctx, http.MethodGet, "/file?fileKey="+url.QueryEscape(fileKey), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFiles(ctx context.Context, fileKeys []string) error {
	body := map[string][]string{"fileKeys": fileKeys}
	return c.do(ctx, http.MethodDelete, "/files", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode >= 300 && resp.StatusCode < 400:
		return ErrAuthRequired
	case resp.StatusCode >= 400:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
