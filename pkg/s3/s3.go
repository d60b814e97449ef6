package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorageClient is the object storage surface used for photos and firmware.
type ObjectStorageClient interface {
	Connect(endpoint, accessKeyID, secretAccessKey string, useSSL bool) error
	Download(ctx context.Context, bucket, object string) ([]byte, error)
	PresignedGetURL(ctx context.Context, bucket, object string, expiry time.Duration) (string, error)
	Upload(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) (int64, error)
	EnsureBucket(ctx context.Context, bucket string) error
}

// ObjectStorage holds the minio client.
type ObjectStorage struct {
	Conn   *minio.Client
	Region string
}

// NewObjectStorage initialization
func NewObjectStorage() *ObjectStorage {
	return &ObjectStorage{Region: "us-east-1"}
}

// Connect establishes the object storage connection using client
func (o *ObjectStorage) Connect(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool) error {
	var err error
	o.Conn, err = minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
		Region: o.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	if _, err = o.Conn.ListBuckets(context.Background()); err != nil {
		return fmt.Errorf("failed to establish minio connection: %w", err)
	}

	return nil
}

// Download reads a whole object into memory.
func (o *ObjectStorage) Download(ctx context.Context, bucket, object string) ([]byte, error) {
	obj, err := o.Conn.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", bucket, object, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, object, err)
	}
	return buf.Bytes(), nil
}

// PresignedGetURL issues a time-limited download URL. The URL is never stored.
func (o *ObjectStorage) PresignedGetURL(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	u, err := o.Conn.PresignedGetObject(ctx, bucket, object, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", bucket, object, err)
	}
	return u.String(), nil
}

// EnsureBucket creates bucket if it does not exist yet.
func (o *ObjectStorage) EnsureBucket(ctx context.Context, bucket string) error {
	err := o.Conn.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: o.Region})
	if err != nil {
		exists, errBucketExists := o.Conn.BucketExists(ctx, bucket)
		if errBucketExists == nil && exists {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// Upload stores r under bucket/object, creating the bucket when needed.
// Existing objects with the same name are overwritten.
func (o *ObjectStorage) Upload(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) (int64, error) {
	if err := o.EnsureBucket(ctx, bucket); err != nil {
		return 0, err
	}
	info, err := o.Conn.PutObject(ctx, bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload %s/%s: %w", bucket, object, err)
	}
	return info.Size, nil
}
