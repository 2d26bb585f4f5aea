package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockHandoffStore is a mock implementation of port.HandoffStore.
type MockHandoffStore struct {
	mock.Mock
}

func (m *MockHandoffStore) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}
