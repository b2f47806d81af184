// Package mocks holds testify mocks for the engine's collaborator ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// MockEmployeeSource is a mock implementation of payroll.EmployeeSource.
type MockEmployeeSource struct {
	mock.Mock
}

func (m *MockEmployeeSource) GetEmployee(ctx context.Context, id generic.EmployeeID) (*payroll.Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payroll.Employee), args.Error(1)
}

// MockClientSource is a mock implementation of payroll.ClientSource.
type MockClientSource struct {
	mock.Mock
}

func (m *MockClientSource) GetClientConfig(ctx context.Context, id generic.ClientID) (*payroll.ClientConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payroll.ClientConfig), args.Error(1)
}

// MockResultSink is a mock implementation of payroll.ResultSink.
type MockResultSink struct {
	mock.Mock
}

func (m *MockResultSink) SaveCalculation(ctx context.Context, result *payroll.CalculationResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}
