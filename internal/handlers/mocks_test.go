package handlers

import (
	"context"

	"inventoryflow/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSweepRunner struct {
	mock.Mock
}

func (m *MockSweepRunner) Run(ctx context.Context, trigger models.SweepTrigger) (*models.SweepResult, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SweepResult), args.Error(1)
}

func (m *MockSweepRunner) LastResult() *models.SweepResult {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*models.SweepResult)
}

type MockScanner struct {
	mock.Mock
}

func (m *MockScanner) CheckLowStock(ctx context.Context) ([]models.LowStockItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LowStockItem), args.Error(1)
}

func (m *MockScanner) Threshold() int {
	return m.Called().Int(0)
}

type MockJobScheduler struct {
	mock.Mock
}

func (m *MockJobScheduler) GetJobStatus() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func (m *MockJobScheduler) RunNow(name string) error {
	return m.Called(name).Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) FindBelowThreshold(ctx context.Context, threshold int) ([]models.LowStockItem, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LowStockItem), args.Error(1)
}

func (m *MockProductRepository) MarkOutOfStock(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock, threshold int) (*models.Product, error) {
	args := m.Called(ctx, id, stock, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return m.Called(ctx, notification).Error(0)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*models.Notification, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) DeleteAll(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}
