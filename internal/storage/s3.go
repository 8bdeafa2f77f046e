package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"dragbox/file-manager/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// s3Storage implements the FileStorage interface using an S3-compatible backend.
type s3Storage struct {
	client        *s3.Client        // Regular client for Head/List/Delete
	presignClient *s3.PresignClient // Special client for generating presigned URLs
	bucketName    string
	pageSize      int32
}

// NewS3Storage creates a new S3 storage service instance.
func NewS3Storage(ctx context.Context, cfg config.S3Config, pageSize int) (FileStorage, error) {
	opts := []func(*awsCfg.LoadOptions) error{
		awsCfg.WithRegion(cfg.Region),
	}
	// Without static keys the default chain (env, shared profile, IAM role) is used.
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Printf("ERROR: Failed to load AWS SDK config for S3: %v", err)
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle // required by MinIO and most S3-compatible services
	})

	log.Printf("INFO: S3 storage initialized for endpoint: %q, bucket: %s", cfg.Endpoint, cfg.BucketName)

	return newS3StorageFromClient(s3Client, cfg.BucketName, pageSize), nil
}

func newS3StorageFromClient(client *s3.Client, bucketName string, pageSize int) *s3Storage {
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	return &s3Storage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    bucketName,
		pageSize:      int32(pageSize),
	}
}

// GeneratePresignedUploadURL creates a temporary URL for uploading (PUT).
func (s *s3Storage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	// ContentType on the input alone is left unsigned; the header is added to the
	// signed set so the URL only accepts a PUT with this exact type.
	signContentType := func(o *s3.PresignOptions) {
		o.ClientOptions = append(o.ClientOptions, func(so *s3.Options) {
			so.APIOptions = append(so.APIOptions, smithyhttp.SetHeaderValue("Content-Type", contentType))
		})
	}
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires), signContentType)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// GeneratePresignedDownloadURL creates a temporary URL for downloading (GET).
func (s *s3Storage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = ReadURLExpiry
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// HeadObject fetches size and modification time for one key.
func (s *s3Storage) HeadObject(ctx context.Context, objectKey string) (*ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}

	return &ObjectInfo{
		Key:          objectKey,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
	}, nil
}

// ListObjects wraps the SDK's ListObjectsV2 paginator.
func (s *s3Storage) ListObjects(prefix string) ObjectLister {
	return &s3Lister{
		paginator: s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucketName),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(s.pageSize),
		}),
	}
}

// DeleteObjects removes up to MaxDeleteBatch keys in a single request.
func (s *s3Storage) DeleteObjects(ctx context.Context, objectKeys []string) (int, error) {
	if len(objectKeys) == 0 {
		return 0, nil
	}
	if len(objectKeys) > MaxDeleteBatch {
		return 0, ErrTooManyKeys
	}

	ids := make([]types.ObjectIdentifier, 0, len(objectKeys))
	for _, key := range objectKeys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucketName),
		Delete: &types.Delete{Objects: ids},
	})
	if err != nil {
		return 0, err
	}

	for _, e := range out.Errors {
		log.Printf("WARN: Delete of '%s' from bucket '%s' reported %s: %s",
			aws.ToString(e.Key), s.bucketName, aws.ToString(e.Code), aws.ToString(e.Message))
	}
	return len(out.Deleted), nil
}

type s3Lister struct {
	paginator *s3.ListObjectsV2Paginator
}

func (l *s3Lister) HasMorePages() bool {
	return l.paginator.HasMorePages()
}

func (l *s3Lister) NextPage(ctx context.Context) (*ObjectPage, error) {
	out, err := l.paginator.NextPage(ctx)
	if err != nil {
		return nil, err
	}

	page := &ObjectPage{
		Objects:   make([]ObjectInfo, 0, len(out.Contents)),
		Truncated: aws.ToBool(out.IsTruncated),
	}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	return page, nil
}

// isNotFound recognises the 404 a HEAD request yields; HEAD responses carry no body,
// so the SDK reports a bare "NotFound" code rather than NoSuchKey.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
