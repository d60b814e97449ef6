package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPlayer is a mock implementation of music.Player
type MockPlayer struct {
	mock.Mock
}

func (m *MockPlayer) CurrentTrackID(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockPlayer) CoverURL(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
