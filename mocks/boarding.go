package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/warp/payroll-engine/boarding"
)

// MockAccountProvisioner is a mock implementation of boarding.AccountProvisioner.
type MockAccountProvisioner struct {
	mock.Mock
}

func (m *MockAccountProvisioner) ProvisionAccount(ctx context.Context, staff boarding.Staff) (*boarding.Account, error) {
	args := m.Called(ctx, staff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*boarding.Account), args.Error(1)
}

// MockAccountStore is a mock implementation of boarding.AccountStore.
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) SaveAccount(ctx context.Context, acct boarding.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *MockAccountStore) FindAccountByUsername(ctx context.Context, username string) (*boarding.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*boarding.Account), args.Error(1)
}
