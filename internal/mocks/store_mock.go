package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

// MockDeviceStore is a mock implementation of store.DeviceStore
type MockDeviceStore struct {
	mock.Mock
}

func (m *MockDeviceStore) FindByID(ctx context.Context, id int64) (*models.Device, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceStore) FindByMAC(ctx context.Context, mac string) (*models.Device, error) {
	args := m.Called(ctx, mac)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceStore) FindByCode(ctx context.Context, code string) (*models.Device, error) {
	args := m.Called(ctx, code)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceStore) Create(ctx context.Context, d models.Device) (*models.Device, error) {
	args := m.Called(ctx, d)
	created, _ := args.Get(0).(*models.Device)
	return created, args.Error(1)
}

func (m *MockDeviceStore) SetCode(ctx context.Context, id int64, code string) error {
	args := m.Called(ctx, id, code)
	return args.Error(0)
}

func (m *MockDeviceStore) Claim(ctx context.Context, id, ownerID int64, name, code string) (*models.Device, error) {
	args := m.Called(ctx, id, ownerID, name, code)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceStore) UpdateConfig(ctx context.Context, id int64, patch models.ConfigPatch) (*models.Device, error) {
	args := m.Called(ctx, id, patch)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

// MockPhotoStore is a mock implementation of store.PhotoStore
type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) FindByID(ctx context.Context, id int64) (*models.Photo, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Photo)
	return p, args.Error(1)
}

func (m *MockPhotoStore) ListVisibleTo(ctx context.Context, userID int64) ([]models.Photo, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]models.Photo)
	return p, args.Error(1)
}

func (m *MockPhotoStore) CountVisibleTo(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockPhotoStore) SavePixels(ctx context.Context, photoID int64, pixels [][]uint16) error {
	args := m.Called(ctx, photoID, pixels)
	return args.Error(0)
}

// MockFirmwareStore is a mock implementation of store.FirmwareStore
type MockFirmwareStore struct {
	mock.Mock
}

func (m *MockFirmwareStore) Latest(ctx context.Context) (*models.FirmwareVersion, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).(*models.FirmwareVersion)
	return v, args.Error(1)
}

func (m *MockFirmwareStore) Create(ctx context.Context, version int, objectKey string, comments *string) (*models.FirmwareVersion, error) {
	args := m.Called(ctx, version, objectKey, comments)
	v, _ := args.Get(0).(*models.FirmwareVersion)
	return v, args.Error(1)
}

// MockCredentialStore is a mock implementation of store.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByUser(ctx context.Context, userID int64) (*models.MusicCredentials, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(*models.MusicCredentials)
	return c, args.Error(1)
}

func (m *MockCredentialStore) UpdateAccessToken(ctx context.Context, id int64, accessToken string, expiresAt time.Time) error {
	args := m.Called(ctx, id, accessToken, expiresAt)
	return args.Error(0)
}

// MockUserStore is a mock implementation of store.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByAuthID(ctx context.Context, authID string) (*models.User, error) {
	args := m.Called(ctx, authID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

// MockDrawingStore is a mock implementation of store.DrawingStore
type MockDrawingStore struct {
	mock.Mock
}

func (m *MockDrawingStore) Save(ctx context.Context, d models.Drawing) (*models.Drawing, error) {
	args := m.Called(ctx, d)
	saved, _ := args.Get(0).(*models.Drawing)
	return saved, args.Error(1)
}

func (m *MockDrawingStore) FindByID(ctx context.Context, id int64) (*models.Drawing, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*models.Drawing)
	return d, args.Error(1)
}

func (m *MockDrawingStore) Latest(ctx context.Context, deviceID int64) (*models.Drawing, error) {
	args := m.Called(ctx, deviceID)
	d, _ := args.Get(0).(*models.Drawing)
	return d, args.Error(1)
}

func (m *MockDrawingStore) ListForDevice(ctx context.Context, deviceID int64) ([]models.Drawing, error) {
	args := m.Called(ctx, deviceID)
	d, _ := args.Get(0).([]models.Drawing)
	return d, args.Error(1)
}
