package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"meetscribe/models"
)

// ErrObjectNotFound is returned by ObjectStorage.GetObject for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is the blob store behind the storage gateway. One instance is
// built at startup and shared by all requests.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	GetObject(ctx context.Context, key string) (*models.StoredObject, error)
	ObjectURL(key string) string
	Bucket() string
}

// S3Storage implements ObjectStorage on Amazon S3 or an S3-compatible store.
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Storage creates the client. A non-empty endpoint switches to path-style
// addressing against that endpoint (MinIO, localstack).
func NewS3Storage(awsCfg aws.Config, bucket, endpoint string, forcePathStyle bool) *S3Storage {
	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		})
	} else if forcePathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, opts...)
	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
}

func (s *S3Storage) Bucket() string { return s.bucket }

// PutObject writes body under key with public-read access.
func (s *S3Storage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// PresignPutObject returns a URL authorizing a single PUT of key until expires.
func (s *S3Storage) PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return req.URL, nil
}

// GetObject fetches key. The caller closes the returned body.
func (s *S3Storage) GetObject(ctx context.Context, key string) (*models.StoredObject, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("s3 get %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}

	contentLength := int64(-1)
	if out.ContentLength != nil {
		contentLength = *out.ContentLength
	}
	return &models.StoredObject{
		Key:           key,
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: contentLength,
	}, nil
}

// ObjectURL returns the path-style retrieval URL for key.
func (s *S3Storage) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.resolveEndpoint(), s.bucket, url.PathEscape(key))
}

func (s *S3Storage) resolveEndpoint() string {
	opts := s.client.Options()
	if opts.BaseEndpoint != nil && *opts.BaseEndpoint != "" {
		return strings.TrimRight(*opts.BaseEndpoint, "/")
	}
	return fmt.Sprintf("https://s3.%s.amazonaws.com", opts.Region)
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ ObjectStorage = (*S3Storage)(nil)
