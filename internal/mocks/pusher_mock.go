package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/pixie-bridge/internal/models"
)

// MockPusher is a mock implementation of devices.DevicePusher and drawing.Mirror
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) UpdateInfo(deviceID int64, cfg models.ConfigResponse) error {
	args := m.Called(deviceID, cfg)
	return args.Error(0)
}

func (m *MockPusher) UpdatePhoto(deviceID, photoID int64) error {
	args := m.Called(deviceID, photoID)
	return args.Error(0)
}

func (m *MockPusher) FactoryReset(deviceID int64) error {
	args := m.Called(deviceID)
	return args.Error(0)
}

func (m *MockPusher) EnterDrawMode(deviceID int64) error {
	args := m.Called(deviceID)
	return args.Error(0)
}

func (m *MockPusher) ExitDrawMode(deviceID int64) error {
	args := m.Called(deviceID)
	return args.Error(0)
}

func (m *MockPusher) DrawPixel(deviceID int64, push models.DrawPixelPush) error {
	args := m.Called(deviceID, push)
	return args.Error(0)
}

func (m *MockPusher) DrawStroke(deviceID int64, push models.DrawStrokePush) error {
	args := m.Called(deviceID, push)
	return args.Error(0)
}

func (m *MockPusher) ClearCanvas(deviceID int64, userID string) error {
	args := m.Called(deviceID, userID)
	return args.Error(0)
}
