package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"dragbox/file-manager/internal/domain"
	"dragbox/file-manager/internal/storage"
)

// UploadURLResponse is what a client needs to PUT a file straight to storage.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
}

// FileService lists, describes, authorises uploads of and deletes a user's files.
// Every method is scoped to userID's prefix.
type FileService interface {
	ListFiles(ctx context.Context, userID string) ([]domain.FileRecord, error)
	GetFile(ctx context.Context, userID, fileKey string) (*domain.FileRecord, error)
	RequestUploadURL(ctx context.Context, userID, fileName, fileType string) (*UploadURLResponse, error)
	DeleteFiles(ctx context.Context, userID string, fileKeys []string) error
}

type fileService struct {
	gateway *storage.Gateway
}

// NewFileService creates a FileService backed by gateway.
func NewFileService(gateway *storage.Gateway) FileService {
	return &fileService{gateway: gateway}
}

// ListFiles returns the user's files newest first, each with a fresh read URL.
func (s *fileService) ListFiles(ctx context.Context, userID string) ([]domain.FileRecord, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	objects, err := s.gateway.ListByPrefix(ctx, s.gateway.UserPrefix(userID))
	if err != nil {
		return nil, upstream(err)
	}

	files := make([]domain.FileRecord, 0, len(objects))
	for _, obj := range objects {
		if !s.gateway.Owns(userID, obj.Key) || strings.HasSuffix(obj.Key, "/") {
			continue // folder markers
		}
		url, err := s.gateway.IssueReadURL(ctx, obj.Key)
		if err != nil {
			return nil, upstream(err)
		}
		files = append(files, domain.NewFileRecord(obj.Key, obj.Size, obj.LastModified, url))
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// GetFile describes a single object of the user.
func (s *fileService) GetFile(ctx context.Context, userID, fileKey string) (*domain.FileRecord, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}
	if fileKey == "" {
		return nil, fmt.Errorf("%w: file key is required", ErrInvalidRequest)
	}
	if !s.gateway.Owns(userID, fileKey) {
		return nil, fmt.Errorf("%w: file key is outside the caller's prefix", ErrInvalidRequest)
	}

	info, err := s.gateway.HeadObject(ctx, fileKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstream(err)
	}

	url, err := s.gateway.IssueReadURL(ctx, fileKey)
	if err != nil {
		return nil, upstream(err)
	}

	rec := domain.NewFileRecord(fileKey, info.Size, info.LastModified, url)
	return &rec, nil
}

// RequestUploadURL signs a PUT for uploads/{userID}/{fileName}. Repeating a name
// overwrites the earlier object.
func (s *fileService) RequestUploadURL(ctx context.Context, userID, fileName, fileType string) (*UploadURLResponse, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}
	if fileType == "" {
		fileType = domain.DefaultContentType
	}

	url, key, err := s.gateway.IssueUploadURL(ctx, userID, fileName, fileType)
	if err != nil {
		return nil, upstream(err)
	}
	return &UploadURLResponse{UploadURL: url, FileKey: key}, nil
}

// DeleteFiles removes fileKeys in one batch. Keys that are already gone count as deleted.
func (s *fileService) DeleteFiles(ctx context.Context, userID string, fileKeys []string) error {
	if userID == "" {
		return ErrAuthRequired
	}
	if len(fileKeys) == 0 {
		return fmt.Errorf("%w: at least one file key is required", ErrInvalidRequest)
	}
	if len(fileKeys) > storage.MaxDeleteBatch {
		return fmt.Errorf("%w: at most %d keys per request", ErrInvalidRequest, storage.MaxDeleteBatch)
	}
	for _, key := range fileKeys {
		if !s.gateway.Owns(userID, key) {
			return fmt.Errorf("%w: key %q is outside the caller's prefix", ErrInvalidRequest, key)
		}
	}

	n, err := s.gateway.DeleteObjects(ctx, fileKeys)
	if err != nil {
		return upstream(err)
	}
	log.Printf("INFO: Deleted %d of %d requested objects for user %s", n, len(fileKeys), userID)
	return nil
}

func validateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: file name is required", ErrInvalidRequest)
	case name == "." || name == "..":
		return fmt.Errorf("%w: invalid file name %q", ErrInvalidRequest, name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: file name must not contain path separators", ErrInvalidRequest)
	}
	return nil
}

func upstream(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
}
