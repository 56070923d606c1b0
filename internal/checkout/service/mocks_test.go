package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	cartdomain "github.com/gildedwren/storefront/internal/cart/domain"
	d "github.com/gildedwren/storefront/internal/checkout/domain"
	r "github.com/gildedwren/storefront/internal/checkout/repository"
	orderdomain "github.com/gildedwren/storefront/internal/orders/domain"
	"github.com/gildedwren/storefront/internal/payment"
)

// MockRepository implements r.RepoInterface with an in-memory session map.
type MockRepository struct {
	mu       sync.Mutex
	Sessions map[string]*d.CheckoutSession
	Events   []r.OutboxEvent
	Err      error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{Sessions: map[string]*d.CheckoutSession{}}
}

func (m *MockRepository) Close() error                       { return nil }
func (m *MockRepository) RunMigrations(*r.Credentials) error { return nil }

func (m *MockRepository) CreateSession(_ context.Context, session *d.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	copied := *session
	m.Sessions[session.ID] = &copied
	return nil
}

func (m *MockRepository) GetSession(_ context.Context, id string) (*d.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	session, ok := m.Sessions[id]
	if !ok {
		return nil, r.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MockRepository) GetOpenSessionByCartSession(_ context.Context, cartSessionID string) (*d.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, session := range m.Sessions {
		if session.CartSessionID == cartSessionID && !session.Status.IsTerminal() {
			copied := *session
			return &copied, nil
		}
	}
	return nil, r.ErrSessionNotFound
}

func (m *MockRepository) UpdateShipping(_ context.Context, id string, details *d.ShippingDetails, step d.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	session.Shipping = details
	session.Step = step
	return nil
}

func (m *MockRepository) SetStep(_ context.Context, id string, step d.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	session.Step = step
	return nil
}

func (m *MockRepository) SetPaymentIntent(_ context.Context, id string, status d.CheckoutStatus, intentID, clientSecret string, snapshot *d.CartSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	session.Status = status
	session.PaymentIntent = intentID
	session.ClientSecret = clientSecret
	session.Snapshot = snapshot
	session.Step = d.StepPayment
	return nil
}

func (m *MockRepository) UpdateStatus(_ context.Context, id string, status d.CheckoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	session.Status = status
	return nil
}

func (m *MockRepository) CompleteSession(_ context.Context, id string, status d.CheckoutStatus, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.Sessions[id]
	if !ok {
		return r.ErrSessionNotFound
	}
	session.Status = status
	m.Events = append(m.Events, r.OutboxEvent{
		ID:        int64(len(m.Events) + 1),
		SessionID: id,
		EventType: "order.completed",
		Payload:   payload,
	})
	return nil
}

func (m *MockRepository) CancelSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.Sessions[id]
	if !ok || session.Status.IsTerminal() {
		return r.ErrSessionNotFound
	}
	session.Status = d.CheckoutStatusCancelled
	return nil
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []r.OutboxEvent
	for _, event := range m.Events {
		if event.ProcessedAt == nil && len(events) < limit {
			events = append(events, event)
		}
	}
	return events, nil
}

func (m *MockRepository) MarkEventAsProcessed(context.Context, int64) error { return nil }

func (m *MockRepository) GetStuckSessions(context.Context) ([]*d.CheckoutSession, error) {
	return nil, nil
}

func (m *MockRepository) session(id string) *d.CheckoutSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sessions[id]
}

// MockCartAccess implements CartAccess.
type MockCartAccess struct {
	mu      sync.Mutex
	Cart    *cartdomain.Cart
	GetErr  error
	Cleared bool
	ClearErr error
}

func (m *MockCartAccess) GetCart(context.Context, string) (*cartdomain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	copied := *m.Cart
	copied.Items = append([]cartdomain.LineItem(nil), m.Cart.Items...)
	return &copied, nil
}

func (m *MockCartAccess) ClearCart(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared = true
	m.Cart.Clear()
	return nil
}

func (m *MockCartAccess) cleared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Cleared
}

// MockGateway implements payment.Gateway and records created intents.
type MockGateway struct {
	mu            sync.Mutex
	Intents       map[string]int64
	seq           int
	CreateErr     error
	Confirmation  payment.Confirmation
	ConfirmErr    error
	ConfirmCalled int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{Intents: map[string]int64{}}
}

func (m *MockGateway) CreateIntent(_ context.Context, amount int64, _ string, _ payment.Metadata) (*payment.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.seq++
	id := fmt.Sprintf("pi_%d", m.seq)
	m.Intents[id] = amount
	return &payment.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (m *MockGateway) ConfirmIntent(_ context.Context, intentID string) (*payment.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmCalled++
	if m.ConfirmErr != nil {
		return nil, m.ConfirmErr
	}
	if _, ok := m.Intents[intentID]; !ok {
		return nil, errors.New("unknown intent " + intentID)
	}
	conf := m.Confirmation
	return &conf, nil
}

func (m *MockGateway) intentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Intents)
}

func (m *MockGateway) amountFor(intentID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Intents[intentID]
}

// MockConfirmer implements OrderConfirmer.
type MockConfirmer struct {
	mu     sync.Mutex
	Orders []*orderdomain.Order
	Err    error
}

func (m *MockConfirmer) ConfirmOrder(_ context.Context, order *orderdomain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Orders = append(m.Orders, order)
	return nil
}

func (m *MockConfirmer) confirmed() []*orderdomain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Orders
}
