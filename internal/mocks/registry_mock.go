package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

// MockDeviceRegistry is a mock implementation of handlers.DeviceRegistry
type MockDeviceRegistry struct {
	mock.Mock
}

func (m *MockDeviceRegistry) RegisterByMAC(ctx context.Context, mac string) (*models.RegisterResponse, error) {
	args := m.Called(ctx, mac)
	r, _ := args.Get(0).(*models.RegisterResponse)
	return r, args.Error(1)
}

func (m *MockDeviceRegistry) ConfigSnapshot(ctx context.Context, deviceID int64) (*models.ConfigResponse, error) {
	args := m.Called(ctx, deviceID)
	c, _ := args.Get(0).(*models.ConfigResponse)
	return c, args.Error(1)
}

// MockDeviceAdmin is a mock implementation of api.DeviceAdmin
type MockDeviceAdmin struct {
	mock.Mock
}

func (m *MockDeviceAdmin) AddDevice(ctx context.Context, mac string) (*models.Device, error) {
	args := m.Called(ctx, mac)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceAdmin) Claim(ctx context.Context, code string, ownerID int64, name string) (*models.Device, error) {
	args := m.Called(ctx, code, ownerID, name)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceAdmin) ClaimByMAC(ctx context.Context, mac string, ownerID int64, name string) (*models.Device, error) {
	args := m.Called(ctx, mac, ownerID, name)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceAdmin) UpdateConfig(ctx context.Context, deviceID, ownerID int64, patch models.ConfigPatch) (*models.Device, error) {
	args := m.Called(ctx, deviceID, ownerID, patch)
	d, _ := args.Get(0).(*models.Device)
	return d, args.Error(1)
}

func (m *MockDeviceAdmin) FactoryReset(ctx context.Context, deviceID, ownerID int64) error {
	args := m.Called(ctx, deviceID, ownerID)
	return args.Error(0)
}

func (m *MockDeviceAdmin) ShowPhoto(ctx context.Context, deviceID, ownerID, photoID int64) error {
	args := m.Called(ctx, deviceID, ownerID, photoID)
	return args.Error(0)
}

// MockDrawingArchive is a mock implementation of api.DrawingArchive
type MockDrawingArchive struct {
	mock.Mock
}

func (m *MockDrawingArchive) Save(ctx context.Context, deviceID, userID int64, title string) (*models.Drawing, error) {
	args := m.Called(ctx, deviceID, userID, title)
	d, _ := args.Get(0).(*models.Drawing)
	return d, args.Error(1)
}

func (m *MockDrawingArchive) Load(ctx context.Context, deviceID, userID, drawingID int64) (*models.Drawing, error) {
	args := m.Called(ctx, deviceID, userID, drawingID)
	d, _ := args.Get(0).(*models.Drawing)
	return d, args.Error(1)
}

func (m *MockDrawingArchive) List(ctx context.Context, deviceID, userID int64) ([]models.Drawing, error) {
	args := m.Called(ctx, deviceID, userID)
	d, _ := args.Get(0).([]models.Drawing)
	return d, args.Error(1)
}
