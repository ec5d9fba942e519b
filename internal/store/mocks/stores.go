// Package mocks provides in-memory store implementations for tests with
// call tracking and error injection hooks.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/order-saga/internal/model"
	"github.com/example/order-saga/internal/store"
)

// MockProductStore is an in-memory ProductStore.
type MockProductStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]model.Product

	// Error injection
	GetErr    error
	AdjustErr error

	// Call tracking
	AdjustCalls []AdjustCall
}

type AdjustCall struct {
	ProductID int64
	Delta     int
}

func NewMockProductStore() *MockProductStore {
	return &MockProductStore{products: make(map[int64]model.Product), nextID: 1}
}

// Seed inserts a product directly, bypassing error injection.
func (m *MockProductStore) Seed(p model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.nextID
	}
	if p.ID >= m.nextID {
		m.nextID = p.ID + 1
	}
	m.products[p.ID] = p
}

func (m *MockProductStore) Get(ctx context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *MockProductStore) List(ctx context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := make([]model.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	return products, nil
}

func (m *MockProductStore) Create(ctx context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = m.nextID
	m.nextID++
	m.products[product.ID] = *product
	return nil
}

func (m *MockProductStore) Update(ctx context.Context, product *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return store.ErrNotFound
	}
	m.products[product.ID] = *product
	return nil
}

func (m *MockProductStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MockProductStore) AdjustQuantity(ctx context.Context, id int64, delta int) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdjustCalls = append(m.AdjustCalls, AdjustCall{ProductID: id, Delta: delta})
	if m.AdjustErr != nil {
		return nil, m.AdjustErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Quantity += delta
	m.products[id] = p
	return &p, nil
}

// MockOrderStore is an in-memory OrderStore.
type MockOrderStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]model.Order

	// Error injection
	GetErr          error
	MarkRefundedErr error

	// Call tracking
	RefundCalls []int64
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{orders: make(map[int64]model.Order), nextID: 1}
}

func (m *MockOrderStore) Seed(o model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == 0 {
		o.ID = m.nextID
	}
	if o.ID >= m.nextID {
		m.nextID = o.ID + 1
	}
	m.orders[o.ID] = o
}

func (m *MockOrderStore) Create(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = m.nextID
	m.nextID++
	m.orders[order.ID] = *order
	return nil
}

func (m *MockOrderStore) Get(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (m *MockOrderStore) CompleteIfPending(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != model.StatusPending {
		return nil
	}
	o.Status = model.StatusCompleted
	m.orders[id] = o
	return nil
}

func (m *MockOrderStore) MarkRefunded(ctx context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefundCalls = append(m.RefundCalls, id)
	if m.MarkRefundedErr != nil {
		return nil, m.MarkRefundedErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Status = model.StatusRefunded
	m.orders[id] = o
	return &o, nil
}

// MockJobStore is an in-memory JobStore.
type MockJobStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]model.CompletionJob
}

func NewMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: make(map[int64]model.CompletionJob), nextID: 1}
}

func (m *MockJobStore) Enqueue(ctx context.Context, orderID int64, dueAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.jobs[id] = model.CompletionJob{ID: id, OrderID: orderID, DueAt: dueAt}
	return id, nil
}

// ClaimDue mirrors the lease behavior of the Postgres store: claimed jobs are
// re-dated ClaimLease into the future so a second claim skips them.
func (m *MockJobStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.CompletionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []model.CompletionJob
	for id, j := range m.jobs {
		if !j.DueAt.After(now) {
			due = append(due, j)
			j.DueAt = now.Add(store.ClaimLease)
			m.jobs[id] = j
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (m *MockJobStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

// Pending returns how many jobs remain queued.
func (m *MockJobStore) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// MockUserStore is an in-memory UserStore.
type MockUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[int64]model.User), nextID: 1}
}

func (m *MockUserStore) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserStore) Get(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}
