package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"travel-storefront/internal/client"
	"travel-storefront/internal/model"
	"travel-storefront/internal/queue"
	"travel-storefront/internal/repository"

	"go.uber.org/zap"
)

// mockBackend is a hand-rolled BackendClient with call counters.
type mockBackend struct {
	mu sync.Mutex

	destinations []model.Destination
	cart         []model.CartLineItem
	methods      []model.PaymentMethod
	purchases    []model.Purchase

	listErr      error
	addErr       error
	removeErr    error
	updateErr    error
	purchasesErr error
	destErr      error
	// checkout fails for these destination ids
	failCheckout map[int64]error

	destCalls     int
	listCalls     int
	updateCalls   int
	removed       []int64
	checkouts     []model.CheckoutRequest
	checkoutPanic bool
	onUnauth      func()

	// when set, calls block until the gate is closed or ctx is done
	destGate     chan struct{}
	checkoutGate chan struct{}
	inFlight     atomic.Int32
	peak         atomic.Int32
}

func waitGate(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mockBackend) ListDestinations(ctx context.Context) ([]model.Destination, error) {
	if err := waitGate(ctx, m.destGate); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destCalls++
	if m.destErr != nil {
		return nil, m.destErr
	}
	return append([]model.Destination(nil), m.destinations...), nil
}

func (m *mockBackend) ListCart(ctx context.Context) ([]model.CartLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.CartLineItem(nil), m.cart...), nil
}

func (m *mockBackend) AddToCart(ctx context.Context, req model.AddToCartRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.cart = append(m.cart, model.CartLineItem{
		LineID:        int64(len(m.cart) + 100),
		DestinationID: req.DestinationID,
		Quantity:      req.Quantity,
		DepartureDate: req.DepartureDate,
	})
	return nil
}

func (m *mockBackend) RemoveFromCart(ctx context.Context, lineID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, lineID)
	kept := m.cart[:0]
	for _, item := range m.cart {
		if item.LineID != lineID {
			kept = append(kept, item)
		}
	}
	m.cart = kept
	return nil
}

func (m *mockBackend) UpdateQuantity(ctx context.Context, lineID int64, quantity model.Quantity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	return m.updateErr
}

func (m *mockBackend) UpdateDate(ctx context.Context, lineID int64, date model.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	return m.updateErr
}

func (m *mockBackend) Checkout(ctx context.Context, req model.CheckoutRequest) (*client.CheckoutResponse, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if err := waitGate(ctx, m.checkoutGate); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkoutPanic {
		panic("boom")
	}
	m.checkouts = append(m.checkouts, req)
	for _, item := range req.Items {
		if err, ok := m.failCheckout[item.DestinationID]; ok {
			return nil, err
		}
	}
	// purchased lines leave the server cart
	kept := m.cart[:0]
	for _, line := range m.cart {
		bought := false
		for _, item := range req.Items {
			if item.DestinationID == line.DestinationID {
				bought = true
			}
		}
		if !bought {
			kept = append(kept, line)
		}
	}
	m.cart = kept
	return &client.CheckoutResponse{Message: "ok"}, nil
}

func (m *mockBackend) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.methods, nil
}

func (m *mockBackend) ListPurchases(ctx context.Context) ([]model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.purchasesErr != nil {
		return nil, m.purchasesErr
	}
	return m.purchases, nil
}

func (m *mockBackend) OnUnauthorized(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUnauth = fn
}

func (m *mockBackend) calls() (list, update int, checkouts []model.CheckoutRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls, m.updateCalls, append([]model.CheckoutRequest(nil), m.checkouts...)
}

// memoryStore is an in-memory LocalStoreRepository.
type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	putErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (s *memoryStore) Put(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.values[key] = value
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.PurchaseCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishPurchaseCompleted(ctx context.Context, event queue.PurchaseCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

const testLedgerKey = "dreamtravel_historial"

type fixture struct {
	backend   *mockBackend
	store     *memoryStore
	publisher *recordingPublisher
	notifier  Notifier
	cart      CartStore
	ledger    Ledger
	checkout  CheckoutService
}

func newFixture(t *testing.T, backend *mockBackend) *fixture {
	t.Helper()
	log := zap.NewNop()

	f := &fixture{
		backend:   backend,
		store:     newMemoryStore(),
		publisher: &recordingPublisher{},
		notifier:  NewNotifier(log),
	}
	f.cart = NewCartStore(backend, f.notifier, log)
	f.ledger = NewLedger(f.store, f.publisher, log, testLedgerKey)
	f.checkout = NewCheckoutService(backend, f.cart, f.ledger, f.notifier, log, 0)
	return f
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, ok := model.ParseDate(s)
	if !ok {
		t.Fatalf("bad date %q", s)
	}
	return d
}
