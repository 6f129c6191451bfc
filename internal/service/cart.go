package service

import (
	"context"
	"fmt"
	"sync"

	"travel-storefront/internal/client"
	"travel-storefront/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CartStore owns the session's view of the server cart. The server is the
// source of truth; the store only changes local state after a confirmed
// call or a refresh. The lock is never held across a network call.
type CartStore interface {
	LoadCatalog(ctx context.Context) error
	Add(ctx context.Context, destinationID int64, quantity float64, departure model.Date) error
	Refresh(ctx context.Context) ([]model.CartLineItem, error)
	Remove(ctx context.Context, lineID int64) error
	UpdateQuantity(ctx context.Context, lineID int64, quantity float64) (bool, error)
	UpdateDate(ctx context.Context, lineID int64, departure model.Date) error
	SetSelected(lineID int64, selected bool) error
	SelectAll(selected bool)
	AllSelected() bool
	Clear(ctx context.Context) error
	Reset()

	Items() []model.CartLineItem
	Selected() []model.CartLineItem
	Item(lineID int64) (model.CartLineItem, bool)
	Total() decimal.Decimal
}

type cartStoreImpl struct {
	backend  client.BackendClient
	notifier Notifier
	log      *zap.Logger

	mu      sync.RWMutex
	items   []model.CartLineItem
	catalog []model.Destination
}

func NewCartStore(backend client.BackendClient, notifier Notifier, log *zap.Logger) CartStore {
	return &cartStoreImpl{
		backend:  backend,
		notifier: notifier,
		log:      log,
	}
}

// LoadCatalog caches the full backend catalog used to fill line item gaps.
func (s *cartStoreImpl) LoadCatalog(ctx context.Context) error {
	destinations, err := s.backend.ListDestinations(ctx)
	if err != nil {
		s.log.Error("load catalog for cart", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.catalog = destinations
	s.mu.Unlock()
	return nil
}

func (s *cartStoreImpl) Add(ctx context.Context, destinationID int64, quantity float64, departure model.Date) error {
	if destinationID <= 0 {
		return validationError("Destino inválido")
	}

	req := model.AddToCartRequest{
		DestinationID: destinationID,
		Quantity:      model.ClampQuantity(quantity),
		DepartureDate: departure,
	}
	if err := s.backend.AddToCart(ctx, req); err != nil {
		s.fail("add to cart", err)
		return err
	}

	s.notifier.Notify(NoticeSuccess, "Item agregado al carrito")
	return nil
}

// Refresh replaces the local cart with the server's. On failure the cart is
// emptied, so the total drops to zero.
func (s *cartStoreImpl) Refresh(ctx context.Context) ([]model.CartLineItem, error) {
	items, err := s.backend.ListCart(ctx)
	if err != nil {
		s.log.Error("refresh cart", zap.Error(err))
		s.mu.Lock()
		s.items = nil
		s.mu.Unlock()
		return []model.CartLineItem{}, err
	}

	for i := range items {
		items[i].Selected = true
	}

	s.mu.RLock()
	catalog := s.catalog
	s.mu.RUnlock()

	if len(items) > 0 && len(catalog) == 0 {
		s.log.Warn("cart has items but no catalog is loaded, display fields may be missing")
	}
	merged, missing := MergeWithCatalog(items, catalog)
	if len(catalog) > 0 {
		for _, id := range missing {
			s.log.Warn("destination details not found for cart item", zap.Int64("id_destino", id))
		}
	}

	s.mu.Lock()
	s.items = merged
	s.mu.Unlock()

	return s.Items(), nil
}

func (s *cartStoreImpl) Remove(ctx context.Context, lineID int64) error {
	if err := s.backend.RemoveFromCart(ctx, lineID); err != nil {
		s.fail("remove cart line", err, zap.Int64("id_compra", lineID))
		return err
	}
	s.notifier.Notify(NoticeSuccess, "Item eliminado del carrito")

	_, err := s.Refresh(ctx)
	return err
}

// UpdateQuantity clamps the quantity to max(1, floor(q)) and only calls the
// backend when that differs from the current one. It reports whether the
// quantity changed.
func (s *cartStoreImpl) UpdateQuantity(ctx context.Context, lineID int64, quantity float64) (bool, error) {
	next := model.ClampQuantity(quantity)

	current, ok := s.Item(lineID)
	if !ok {
		return false, ErrLineNotFound
	}
	if current.Quantity == next {
		return false, nil
	}

	if err := s.backend.UpdateQuantity(ctx, lineID, next); err != nil {
		s.fail("update quantity", err, zap.Int64("id_compra", lineID))
		return false, err
	}

	s.mutate(lineID, func(item *model.CartLineItem) { item.Quantity = next })
	s.notifier.Notify(NoticeSuccess, "Cantidad actualizada correctamente")
	return true, nil
}

func (s *cartStoreImpl) UpdateDate(ctx context.Context, lineID int64, departure model.Date) error {
	if !departure.Valid() {
		return validationError("Fecha de salida inválida")
	}
	if _, ok := s.Item(lineID); !ok {
		return ErrLineNotFound
	}

	if err := s.backend.UpdateDate(ctx, lineID, departure); err != nil {
		s.fail("update departure date", err, zap.Int64("id_compra", lineID))
		return err
	}

	s.mutate(lineID, func(item *model.CartLineItem) { item.DepartureDate = departure })
	s.notifier.Notify(NoticeSuccess, "Fecha actualizada correctamente")
	return nil
}

func (s *cartStoreImpl) SetSelected(lineID int64, selected bool) error {
	if !s.mutate(lineID, func(item *model.CartLineItem) { item.Selected = selected }) {
		return ErrLineNotFound
	}
	return nil
}

func (s *cartStoreImpl) SelectAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Selected = selected
	}
}

func (s *cartStoreImpl) AllSelected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return false
	}
	for _, item := range s.items {
		if !item.Selected {
			return false
		}
	}
	return true
}

// Clear deletes every line of the server cart concurrently and refreshes.
func (s *cartStoreImpl) Clear(ctx context.Context) error {
	items, err := s.backend.ListCart(ctx)
	if err != nil {
		s.fail("list cart before clearing", err)
		return err
	}

	g := new(errgroup.Group)
	for _, item := range items {
		lineID := item.LineID
		g.Go(func() error {
			return s.backend.RemoveFromCart(context.WithoutCancel(ctx), lineID)
		})
	}
	clearErr := g.Wait()

	if _, err := s.Refresh(ctx); err != nil && clearErr == nil {
		clearErr = err
	}
	if clearErr != nil {
		s.fail("clear cart", clearErr)
		return fmt.Errorf("clear cart: %w", clearErr)
	}

	s.notifier.Notify(NoticeSuccess, "Carrito limpiado correctamente")
	return nil
}

func (s *cartStoreImpl) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.catalog = nil
}

func (s *cartStoreImpl) Items() []model.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *cartStoreImpl) Selected() []model.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.CartLineItem
	for _, item := range s.items {
		if item.Selected {
			out = append(out, item)
		}
	}
	return out
}

func (s *cartStoreImpl) Item(lineID int64) (model.CartLineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.LineID == lineID {
			return item, true
		}
	}
	return model.CartLineItem{}, false
}

func (s *cartStoreImpl) Total() decimal.Decimal {
	return ComputeTotal(s.Items())
}

func (s *cartStoreImpl) mutate(lineID int64, fn func(item *model.CartLineItem)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].LineID == lineID {
			fn(&s.items[i])
			return true
		}
	}
	return false
}

func (s *cartStoreImpl) fail(op string, err error, fields ...zap.Field) {
	s.log.Error(op, append(fields, zap.Error(err))...)
	s.notifier.Notify(NoticeDanger, client.UserMessage(err))
}

// MergeWithCatalog fills missing display fields of each line item from the
// catalog entry with the same destination id. Items are returned in order;
// ids with no catalog entry are reported in missing and left as they are.
func MergeWithCatalog(items []model.CartLineItem, catalog []model.Destination) (merged []model.CartLineItem, missing []int64) {
	byID := make(map[int64]model.Destination, len(catalog))
	for _, d := range catalog {
		byID[d.ID] = d
	}

	merged = make([]model.CartLineItem, 0, len(items))
	for _, item := range items {
		if needsDetails(item) {
			if d, ok := byID[item.DestinationID]; ok {
				fillFromDestination(&item, d)
			} else {
				missing = append(missing, item.DestinationID)
			}
		}
		merged = append(merged, item)
	}
	return merged, missing
}

func needsDetails(item model.CartLineItem) bool {
	return item.Name == "" || item.Description == "" || item.Image == "" || !item.Price.Valid
}

func fillFromDestination(item *model.CartLineItem, d model.Destination) {
	if item.Name == "" {
		item.Name = d.Name
	}
	if item.Description == "" {
		item.Description = d.Description
	}
	if item.Image == "" {
		item.Image = d.Image
	}
	if !item.Price.Valid {
		item.Price = d.Price
	}
	if !item.DepartureDate.Valid() {
		item.DepartureDate = d.DepartureDate
	}
}

// ComputeTotal sums price times quantity over the selected items only.
func ComputeTotal(items []model.CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Selected {
			total = total.Add(item.Subtotal().Decimal())
		}
	}
	return total
}
