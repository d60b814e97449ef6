package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/pixie-bridge/pkg/jwt"
)

// MockTokenValidator is a mock implementation of jwt.ValidatorInterface
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) Validate(token string) (*jwt.Claims, error) {
	args := m.Called(token)
	c, _ := args.Get(0).(*jwt.Claims)
	return c, args.Error(1)
}
