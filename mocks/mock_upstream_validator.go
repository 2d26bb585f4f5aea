package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pf-nexus/papermark/internal/domain"
)

// MockUpstreamValidator is a mock implementation of port.UpstreamValidator.
type MockUpstreamValidator struct {
	mock.Mock
}

func (m *MockUpstreamValidator) Validate(ctx context.Context, sessionToken string) (*domain.UpstreamProfile, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UpstreamProfile), args.Error(1)
}
