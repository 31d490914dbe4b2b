package service

import (
	"context"
	"time"

	"product-catalog/internal/model"
	"product-catalog/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) Add(ctx context.Context, p model.NewProduct) (model.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockLongRunningTask is a mock implementation of simulation.LongRunningTask.
type MockLongRunningTask struct {
	mock.Mock
}

func (m *MockLongRunningTask) Run(ctx context.Context) (time.Duration, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Duration), args.Error(1)
}

// MockProductWriter is a mock implementation of ProductWriter.
type MockProductWriter struct {
	mock.Mock
}

func (m *MockProductWriter) Dispatch(ctx context.Context, name string, price decimal.Decimal) error {
	args := m.Called(ctx, name, price)
	return args.Error(0)
}

// MockTaskSubmitter is a mock implementation of TaskSubmitter.
type MockTaskSubmitter struct {
	mock.Mock
}

func (m *MockTaskSubmitter) Submit(ctx context.Context, task worker.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
