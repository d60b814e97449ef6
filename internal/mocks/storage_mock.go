package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockObjectStorage is a mock implementation of s3.ObjectStorageClient
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Connect(endpoint, accessKeyID, secretAccessKey string, useSSL bool) error {
	args := m.Called(endpoint, accessKeyID, secretAccessKey, useSSL)
	return args.Error(0)
}

func (m *MockObjectStorage) Download(ctx context.Context, bucket, object string) ([]byte, error) {
	args := m.Called(ctx, bucket, object)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockObjectStorage) PresignedGetURL(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucket, object, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) Upload(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) (int64, error) {
	args := m.Called(ctx, bucket, object, r, size, contentType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockObjectStorage) EnsureBucket(ctx context.Context, bucket string) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}
