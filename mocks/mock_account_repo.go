package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pf-nexus/papermark/internal/domain"
)

// MockAccountRepo is a mock implementation of port.AccountRepository.
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider domain.AuthProvider) (*domain.Account, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepo) CreateIfAbsent(ctx context.Context, account *domain.Account) (*domain.Account, bool, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Account), args.Bool(1), args.Error(2)
}
