package jobs

import (
	"context"
	"sort"
	"sync"

	"inventoryflow/internal/mailer"
	"inventoryflow/internal/models"
	"inventoryflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository mocks the ProductRepository interface for testing
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
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock, threshold int) (*models.Product, error) {
	args := m.Called(ctx, id, stock, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

// MockUserRepository mocks the UserRepository interface for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockNotificationRepository mocks the NotificationRepository interface for testing
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
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

// MockSender mocks the mailer.Sender interface for testing
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, email mailer.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// memoryProductStore is a stateful ProductRepository that applies the same
// filter as the SQL implementation.
type memoryProductStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	order    []uuid.UUID
	failMark map[uuid.UUID]error
}

func newMemoryProductStore(products ...models.Product) *memoryProductStore {
	s := &memoryProductStore{
		products: make(map[uuid.UUID]*models.Product),
		failMark: make(map[uuid.UUID]error),
	}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
		s.order = append(s.order, p.ID)
	}
	return s
}

func (s *memoryProductStore) get(id uuid.UUID) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.products[id]
}

func (s *memoryProductStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memoryProductStore) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Product
	for _, id := range s.order {
		cp := *s.products[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryProductStore) FindBelowThreshold(ctx context.Context, threshold int) ([]models.LowStockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.LowStockItem
	for _, id := range s.order {
		p := s.products[id]
		if p.Stock < threshold && p.Status != models.ProductStatusOutOfStock {
			items = append(items, models.LowStockItem{Product: *p, OwnerName: "Owner"})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Product.Stock < items[j].Product.Stock })
	return items, nil
}

func (s *memoryProductStore) MarkOutOfStock(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failMark[id]; err != nil {
		return err
	}
	p, ok := s.products[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Status = models.ProductStatusOutOfStock
	return nil
}

func (s *memoryProductStore) UpdateStock(ctx context.Context, id uuid.UUID, stock, threshold int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	p.Stock = stock
	if stock >= threshold {
		p.Status = models.ProductStatusAvailable
	}
	cp := *p
	return &cp, nil
}

// recordingSender keeps every delivered email and fails the addresses in fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Email
	fail map[string]error
}

func (s *recordingSender) Send(ctx context.Context, email mailer.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[email.To]; err != nil {
		return err
	}
	s.sent = append(s.sent, email)
	return nil
}

func (s *recordingSender) delivered() []mailer.Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Email(nil), s.sent...)
}
