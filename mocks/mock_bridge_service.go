package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pf-nexus/papermark/internal/service"
)

// MockBridgeService is a mock implementation of service.BridgeService.
type MockBridgeService struct {
	mock.Mock
}

func (m *MockBridgeService) Bridge(ctx context.Context, upstreamToken string) (*service.BridgeResult, error) {
	args := m.Called(ctx, upstreamToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BridgeResult), args.Error(1)
}

func (m *MockBridgeService) CompleteHandoff(ctx context.Context, handoffToken string) (*service.BridgeResult, error) {
	args := m.Called(ctx, handoffToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BridgeResult), args.Error(1)
}
