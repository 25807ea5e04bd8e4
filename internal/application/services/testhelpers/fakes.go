package testhelpers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockProcessor is a testify mock of application.Processor.
type MockProcessor struct {
	mock.Mock
}

// NewMockProcessor creates a MockProcessor whose expectations are asserted when the test ends.
func NewMockProcessor(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProcessor {
	m := &MockProcessor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProcessor) CreateToken(ctx context.Context, req application.TokenRequest) (*domain.Token, error) {
	args := m.Called(ctx, req)
	token, _ := args.Get(0).(*domain.Token)
	return token, args.Error(1)
}

func (m *MockProcessor) CreateCustomer(ctx context.Context, req application.CustomerRequest) (*application.ProcessorCustomer, error) {
	args := m.Called(ctx, req)
	customer, _ := args.Get(0).(*application.ProcessorCustomer)
	return customer, args.Error(1)
}

func (m *MockProcessor) GetCustomer(ctx context.Context, customerID string) (*application.ProcessorCustomer, error) {
	args := m.Called(ctx, customerID)
	customer, _ := args.Get(0).(*application.ProcessorCustomer)
	return customer, args.Error(1)
}

func (m *MockProcessor) UpdateCustomerSource(ctx context.Context, customerID, tokenID string) (*application.ProcessorCustomer, error) {
	args := m.Called(ctx, customerID, tokenID)
	customer, _ := args.Get(0).(*application.ProcessorCustomer)
	return customer, args.Error(1)
}

func (m *MockProcessor) CreateCharge(ctx context.Context, req application.ChargeRequest) (*application.ProcessorCharge, error) {
	args := m.Called(ctx, req)
	charge, _ := args.Get(0).(*application.ProcessorCharge)
	return charge, args.Error(1)
}

func (m *MockProcessor) GetCharge(ctx context.Context, chargeID string) (*application.ProcessorCharge, error) {
	args := m.Called(ctx, chargeID)
	charge, _ := args.Get(0).(*application.ProcessorCharge)
	return charge, args.Error(1)
}

func (m *MockProcessor) CreateRefund(ctx context.Context, req application.RefundRequest) (*application.ProcessorRefund, error) {
	args := m.Called(ctx, req)
	refund, _ := args.Get(0).(*application.ProcessorRefund)
	return refund, args.Error(1)
}

// StaticProvider hands the same Processor to every configuration.
type StaticProvider struct {
	Processor application.Processor
}

func (p StaticProvider) ForConfig(domain.PaymentConfiguration) application.Processor {
	return p.Processor
}

// StaticSettings always returns Config.
type StaticSettings struct {
	mu     sync.RWMutex
	Config domain.PaymentConfiguration
	Err    error
}

func (s *StaticSettings) Current(context.Context) (domain.PaymentConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Config, s.Err
}

func (s *StaticSettings) Update(fn func(cfg *domain.PaymentConfiguration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.Config)
}

// FakeOrderStore is an in-memory application.OrderStore.
type FakeOrderStore struct {
	mu      sync.RWMutex
	orders  map[string]*domain.Order
	charges map[string]*domain.Charge
	refunds map[string][]*domain.Refund
	notes   map[string][]*domain.OrderNote
	nextID  int64

	AddNoteFn        func(ctx context.Context, orderID, message string) error
	CompleteChargeFn func(ctx context.Context, charge *domain.Charge) error
}

func NewFakeOrderStore() *FakeOrderStore {
	return &FakeOrderStore{
		orders:  make(map[string]*domain.Order),
		charges: make(map[string]*domain.Charge),
		refunds: make(map[string][]*domain.Refund),
		notes:   make(map[string][]*domain.OrderNote),
	}
}

// Put stores order as-is, bypassing Register.
func (s *FakeOrderStore) Put(order *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.orders[order.ID] = &cp
}

func (s *FakeOrderStore) Register(_ context.Context, order *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.orders[order.ID]
	if ok {
		if existing.PaidAt == nil && existing.ChargeClaimedAt == nil {
			existing.Number = order.Number
			existing.BuyerID = order.BuyerID
			existing.Currency = order.Currency
			existing.Total = order.Total
			existing.TotalTax = order.TotalTax
			existing.TotalShipping = order.TotalShipping
			existing.Billing = order.Billing
			existing.Shipping = order.Shipping
		}
		cp := *existing
		return &cp, nil
	}

	cp := *order
	s.orders[order.ID] = &cp
	out := cp
	return &out, nil
}

func (s *FakeOrderStore) FindByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.NewOrderNotFoundError(id)
	}
	cp := *o
	return &cp, nil
}

func (s *FakeOrderStore) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, paymentReference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.NewOrderNotFoundError(id)
	}
	o.Status = status
	o.PaymentReference = paymentReference
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *FakeOrderStore) ClaimCharge(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, domain.NewOrderNotFoundError(id)
	}
	if o.PaidAt != nil || o.ChargeClaimedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	o.ChargeClaimedAt = &now
	return true, nil
}

func (s *FakeOrderStore) ReleaseChargeClaim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok && o.PaidAt == nil {
		o.ChargeClaimedAt = nil
	}
	return nil
}

func (s *FakeOrderStore) CompleteCharge(ctx context.Context, charge *domain.Charge) error {
	if s.CompleteChargeFn != nil {
		return s.CompleteChargeFn(ctx, charge)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[charge.OrderID]
	if !ok {
		return domain.NewOrderNotFoundError(charge.OrderID)
	}
	if _, exists := s.charges[charge.OrderID]; exists {
		return domain.NewOrderAlreadyPaidError(charge.OrderID)
	}
	cp := *charge
	s.charges[charge.OrderID] = &cp
	now := time.Now().UTC()
	o.PaidAt = &now
	o.ChargeID = charge.ID
	o.ChargeClaimedAt = nil
	return nil
}

func (s *FakeOrderStore) FindCharge(_ context.Context, orderID string) (*domain.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.charges[orderID]
	if !ok {
		return nil, application.ErrChargeNotFound
	}
	cp := *c
	return &cp, nil
}

// PutCharge records charge and marks its order paid, bypassing the claim.
func (s *FakeOrderStore) PutCharge(charge *domain.Charge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *charge
	s.charges[charge.OrderID] = &cp
	if o, ok := s.orders[charge.OrderID]; ok {
		now := time.Now().UTC()
		o.PaidAt = &now
		o.ChargeID = charge.ID
	}
}

func (s *FakeOrderStore) SaveRefund(_ context.Context, refund *domain.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *refund
	s.refunds[refund.OrderID] = append(s.refunds[refund.OrderID], &cp)
	return nil
}

func (s *FakeOrderStore) ListRefunds(_ context.Context, orderID string) ([]*domain.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Refund(nil), s.refunds[orderID]...), nil
}

func (s *FakeOrderStore) AddNote(ctx context.Context, orderID, message string) error {
	if s.AddNoteFn != nil {
		return s.AddNoteFn(ctx, orderID, message)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.notes[orderID] = append(s.notes[orderID], &domain.OrderNote{
		ID:        s.nextID,
		OrderID:   orderID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *FakeOrderStore) ListNotes(_ context.Context, orderID string) ([]*domain.OrderNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.OrderNote(nil), s.notes[orderID]...), nil
}

// NoteMessages returns the messages of every note on orderID, oldest first.
func (s *FakeOrderStore) NoteMessages(orderID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.notes[orderID]))
	for _, n := range s.notes[orderID] {
		out = append(out, n.Message)
	}
	return out
}

// FakeCustomerDirectory is an in-memory application.CustomerDirectory.
type FakeCustomerDirectory struct {
	mu      sync.RWMutex
	records map[string]*domain.CustomerRecord
}

func NewFakeCustomerDirectory() *FakeCustomerDirectory {
	return &FakeCustomerDirectory{records: make(map[string]*domain.CustomerRecord)}
}

func (d *FakeCustomerDirectory) FindByUserID(_ context.Context, userID string) (*domain.CustomerRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[userID]
	if !ok {
		return nil, application.ErrCustomerNotFound
	}
	cp := *r
	return &cp, nil
}

func (d *FakeCustomerDirectory) Save(_ context.Context, record *domain.CustomerRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *record
	d.records[record.UserID] = &cp
	return nil
}

func (d *FakeCustomerDirectory) UpdateFingerprint(_ context.Context, userID, fingerprint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.records[userID]
	if !ok {
		return application.ErrCustomerNotFound
	}
	r.Fingerprint = fingerprint
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordingLifecycle collects published status changes.
type RecordingLifecycle struct {
	mu     sync.Mutex
	events []domain.OrderStatusChanged
	Err    error
}

func (l *RecordingLifecycle) PublishStatusChange(_ context.Context, event domain.OrderStatusChanged) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.events = append(l.events, event)
	return nil
}

func (l *RecordingLifecycle) Events() []domain.OrderStatusChanged {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.OrderStatusChanged(nil), l.events...)
}

// RecordingEvents collects published payment events.
type RecordingEvents struct {
	mu     sync.Mutex
	events []domain.PaymentEvent
}

func (r *RecordingEvents) Publish(_ context.Context, event domain.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingEvents) Types() []domain.PaymentEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PaymentEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// FakeCart records cleared sessions.
type FakeCart struct {
	mu      sync.Mutex
	cleared []string
	Err     error
}

func (c *FakeCart) Clear(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.cleared = append(c.cleared, sessionID)
	return nil
}

func (c *FakeCart) Cleared() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.cleared...)
	sort.Strings(out)
	return out
}

// KeyedLocker is an in-process application.Locker that counts acquisitions per key.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	count map[string]int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{
		locks: make(map[string]*sync.Mutex),
		count: make(map[string]int),
	}
}

func (l *KeyedLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.count[key]++
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

func (l *KeyedLocker) Acquisitions(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count[key]
}
