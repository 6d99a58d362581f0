package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/datavend/backend/internal/domain/bundle"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/domain/outbox"
	"github.com/datavend/backend/internal/domain/reseller"
)

// --- Order Repository Mock ---

// MockOrderRepository is a mock implementation of order.Repository.
type MockOrderRepository struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*order.Order
	byNumber map[string]*order.Order
	settled  map[uuid.UUID]bool

	CreateFunc           func(ctx context.Context, o *order.Order) error
	GetByIDFunc          func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByOrderNumberFunc func(ctx context.Context, orderNumber string) (*order.Order, error)
	MarkPaidFunc         func(ctx context.Context, o *order.Order) (bool, error)
	UpdateFunc           func(ctx context.Context, o *order.Order) error
	ListFunc             func(ctx context.Context, filter order.ListFilter) ([]*order.Order, error)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[uuid.UUID]*order.Order),
		byNumber: make(map[string]*order.Order),
		settled:  make(map[uuid.UUID]bool),
	}
}

// AddOrder pre-populates the mock with an order.
func (m *MockOrderRepository) AddOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.byNumber[o.OrderNumber] = o
	m.settled[o.ID] = o.PaymentStatus == order.PaymentPaid
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.byNumber[o.OrderNumber] = o
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	if m.GetByOrderNumberFunc != nil {
		return m.GetByOrderNumberFunc(ctx, orderNumber)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byNumber[orderNumber]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return o, nil
}

// MarkPaid mirrors the conditional update of the real repository: the first
// call for a given order settles it and returns true, every later call
// returns false.
func (m *MockOrderRepository) MarkPaid(ctx context.Context, o *order.Order) (bool, error) {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return false, nil
	}
	if m.settled[o.ID] {
		return false, nil
	}
	m.settled[o.ID] = true
	m.orders[o.ID] = o
	m.byNumber[o.OrderNumber] = o
	return true, nil
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return domainErrors.ErrOrderNotFound
	}
	m.orders[o.ID] = o
	m.byNumber[o.OrderNumber] = o
	return nil
}

func (m *MockOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.PaymentStatus != nil && o.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		if filter.ResellerID != nil && (o.ResellerID == nil || *o.ResellerID != *filter.ResellerID) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

// GetOrderByNumber returns the stored order (test helper, no context needed).
func (m *MockOrderRepository) GetOrderByNumber(orderNumber string) *order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byNumber[orderNumber]
}

// Orders returns a snapshot of every stored order.
func (m *MockOrderRepository) Orders() []*order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*order.Order, 0, len(m.orders))
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result
}

// --- Reseller Repository Mock ---

// MockResellerRepository is a mock implementation of reseller.Repository.
type MockResellerRepository struct {
	mu        sync.Mutex
	resellers map[uuid.UUID]*reseller.Reseller

	CreateFunc            func(ctx context.Context, r *reseller.Reseller) error
	GetByIDFunc           func(ctx context.Context, id uuid.UUID) (*reseller.Reseller, error)
	GetByReferralCodeFunc func(ctx context.Context, code string) (*reseller.Reseller, error)
	IncrementTotalsFunc   func(ctx context.Context, id uuid.UUID, earnings, sales int64) error
	UpdateFunc            func(ctx context.Context, r *reseller.Reseller) error
}

func NewMockResellerRepository() *MockResellerRepository {
	return &MockResellerRepository{resellers: make(map[uuid.UUID]*reseller.Reseller)}
}

// AddReseller pre-populates the mock with a reseller.
func (m *MockResellerRepository) AddReseller(r *reseller.Reseller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resellers[r.ID] = r
}

func (m *MockResellerRepository) Create(ctx context.Context, r *reseller.Reseller) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resellers[r.ID] = r
	return nil
}

func (m *MockResellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*reseller.Reseller, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resellers[id]
	if !ok {
		return nil, domainErrors.ErrResellerNotFound
	}
	return r, nil
}

func (m *MockResellerRepository) GetByReferralCode(ctx context.Context, code string) (*reseller.Reseller, error) {
	if m.GetByReferralCodeFunc != nil {
		return m.GetByReferralCodeFunc(ctx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.resellers {
		if r.ReferralCode == code {
			return r, nil
		}
	}
	return nil, domainErrors.ErrResellerNotFound
}

func (m *MockResellerRepository) IncrementTotals(ctx context.Context, id uuid.UUID, earnings, sales int64) error {
	if m.IncrementTotalsFunc != nil {
		return m.IncrementTotalsFunc(ctx, id, earnings, sales)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resellers[id]
	if !ok {
		return domainErrors.ErrResellerNotFound
	}
	r.TotalEarnings += earnings
	r.TotalSales += sales
	r.TotalOrders++
	return nil
}

func (m *MockResellerRepository) Update(ctx context.Context, r *reseller.Reseller) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resellers[r.ID]; !ok {
		return domainErrors.ErrResellerNotFound
	}
	m.resellers[r.ID] = r
	return nil
}

// GetResellerByID returns the stored reseller (test helper, no context needed).
func (m *MockResellerRepository) GetResellerByID(id uuid.UUID) *reseller.Reseller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resellers[id]
}

// --- Bundle Repository Mock ---

// MockBundleRepository is a mock implementation of bundle.Repository.
type MockBundleRepository struct {
	mu      sync.Mutex
	bundles map[uuid.UUID]*bundle.Bundle

	GetByIDFunc    func(ctx context.Context, id uuid.UUID) (*bundle.Bundle, error)
	ListActiveFunc func(ctx context.Context) ([]*bundle.Bundle, error)
}

func NewMockBundleRepository() *MockBundleRepository {
	return &MockBundleRepository{bundles: make(map[uuid.UUID]*bundle.Bundle)}
}

// AddBundle pre-populates the mock with a bundle.
func (m *MockBundleRepository) AddBundle(b *bundle.Bundle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[b.ID] = b
}

func (m *MockBundleRepository) GetByID(ctx context.Context, id uuid.UUID) (*bundle.Bundle, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bundles[id]
	if !ok {
		return nil, domainErrors.ErrBundleNotFound
	}
	return b, nil
}

func (m *MockBundleRepository) ListActive(ctx context.Context) ([]*bundle.Bundle, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*bundle.Bundle, 0, len(m.bundles))
	for _, b := range m.bundles {
		if b.Active {
			result = append(result, b)
		}
	}
	return result, nil
}

// --- Ledger Repository Mock ---

// MockLedgerRepository is a mock implementation of ledger.Repository. It
// enforces the same (order_number, entry_type) uniqueness as the real table.
type MockLedgerRepository struct {
	mu           sync.Mutex
	transactions []*ledger.Transaction
	seen         map[string]bool

	CreateFunc           func(ctx context.Context, txn *ledger.Transaction) error
	GetByOrderNumberFunc func(ctx context.Context, orderNumber string) ([]*ledger.Transaction, error)
	ListByResellerFunc   func(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*ledger.Transaction, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{seen: make(map[string]bool)}
}

func (m *MockLedgerRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := txn.OrderNumber + "|" + string(txn.EntryType)
	if m.seen[key] {
		return domainErrors.ErrDuplicateTransaction
	}
	m.seen[key] = true
	m.transactions = append(m.transactions, txn)
	return nil
}

func (m *MockLedgerRepository) GetByOrderNumber(ctx context.Context, orderNumber string) ([]*ledger.Transaction, error) {
	if m.GetByOrderNumberFunc != nil {
		return m.GetByOrderNumberFunc(ctx, orderNumber)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*ledger.Transaction
	for _, txn := range m.transactions {
		if txn.OrderNumber == orderNumber {
			result = append(result, txn)
		}
	}
	return result, nil
}

func (m *MockLedgerRepository) ListByReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*ledger.Transaction, error) {
	if m.ListByResellerFunc != nil {
		return m.ListByResellerFunc(ctx, resellerID, limit, offset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*ledger.Transaction
	for _, txn := range m.transactions {
		if txn.ResellerID != nil && *txn.ResellerID == resellerID {
			result = append(result, txn)
		}
	}
	return result, nil
}

// Transactions returns all stored transactions (test helper).
func (m *MockLedgerRepository) Transactions() []*ledger.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ledger.Transaction(nil), m.transactions...)
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is a mock implementation of outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	entries []*outbox.Entry

	InsertFunc        func(ctx context.Context, entry *outbox.Entry) error
	GetPendingFunc    func(ctx context.Context, limit int) ([]*outbox.Entry, error)
	MarkPublishedFunc func(ctx context.Context, id uuid.UUID) error
	MarkFailedFunc    func(ctx context.Context, id uuid.UUID) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*outbox.Entry
	for _, e := range m.entries {
		if e.Status == outbox.StatusPending {
			pending = append(pending, e)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = outbox.StatusPublished
		}
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = outbox.StatusFailed
		}
	}
	return nil
}

// Entries returns all stored entries (test helper).
func (m *MockOutboxRepository) Entries() []*outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*outbox.Entry(nil), m.entries...)
}

// --- Enqueuer Mock ---

// EnqueuedMessage records one Enqueue call.
type EnqueuedMessage struct {
	Ref     string
	Kind    string
	Payload []byte
}

// MockEnqueuer is a mock implementation of the queue producer port.
type MockEnqueuer struct {
	mu       sync.Mutex
	messages []EnqueuedMessage

	EnqueueFunc func(ctx context.Context, ref, kind string, payload []byte) (string, error)
}

func NewMockEnqueuer() *MockEnqueuer {
	return &MockEnqueuer{}
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, ref, kind string, payload []byte) (string, error) {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, ref, kind, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, EnqueuedMessage{Ref: ref, Kind: kind, Payload: payload})
	return "0-0", nil
}

// Messages returns all recorded enqueues (test helper).
func (m *MockEnqueuer) Messages() []EnqueuedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EnqueuedMessage(nil), m.messages...)
}

// --- Notification Sink Mock ---

// MockSink is a mock implementation of the notification sink client.
type MockSink struct {
	mu        sync.Mutex
	delivered []map[string]any

	DeliverFunc func(ctx context.Context, payload map[string]any) error
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Deliver(ctx context.Context, payload map[string]any) error {
	if m.DeliverFunc != nil {
		return m.DeliverFunc(ctx, payload)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, payload)
	return nil
}

// Delivered returns all recorded deliveries (test helper).
func (m *MockSink) Delivered() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.delivered...)
}
