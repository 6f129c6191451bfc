package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"travel-storefront/internal/client"
	"travel-storefront/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type CheckoutPhase string

const (
	PhaseIdle       CheckoutPhase = "idle"
	PhaseValidating CheckoutPhase = "validating"
	PhaseInFlight   CheckoutPhase = "in_flight"
	PhaseSettled    CheckoutPhase = "settled"
)

type OutcomeClass string

const (
	OutcomeAllSucceeded  OutcomeClass = "all_succeeded"
	OutcomeSomeSucceeded OutcomeClass = "some_succeeded"
	OutcomeNoneSucceeded OutcomeClass = "none_succeeded"
)

type View string

const (
	ViewCatalog View = "catalog"
	ViewCart    View = "cart"
)

var ErrCheckoutAborted = errors.New("checkout aborted unexpectedly")

// ItemResult is the per-item sentinel of a checkout: failures are captured
// here instead of failing the batch.
type ItemResult struct {
	Item    model.CartLineItem `json:"item"`
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	Err     error              `json:"-"`
}

type CheckoutOutcome struct {
	Results      []ItemResult         `json:"results"`
	Skipped      []model.CartLineItem `json:"skipped,omitempty"`
	SuccessCount int                  `json:"successCount"`
	ErrorCount   int                  `json:"errorCount"`
	Class        OutcomeClass         `json:"class"`
	Notice       Notice               `json:"notice"`
	Next         View                 `json:"next"`
	Cart         []model.CartLineItem `json:"cart"`
}

type CheckoutService interface {
	// Checkout sends one request per selected item, concurrently.
	Checkout(ctx context.Context, paymentMethod string) (*CheckoutOutcome, error)
	// CheckoutBatch sends all selected items in a single request.
	CheckoutBatch(ctx context.Context, paymentMethod string) (*CheckoutOutcome, error)
	BuyNow(ctx context.Context, lineID int64, paymentMethod string) (*CheckoutOutcome, error)
	OnPhase(fn func(CheckoutPhase))
}

type checkoutServiceImpl struct {
	backend     client.BackendClient
	cart        CartStore
	ledger      Ledger
	notifier    Notifier
	log         *zap.Logger
	maxParallel int

	busy    atomic.Bool
	hookMu  sync.RWMutex
	onPhase func(CheckoutPhase)
}

func NewCheckoutService(
	backend client.BackendClient,
	cart CartStore,
	ledger Ledger,
	notifier Notifier,
	log *zap.Logger,
	maxParallel int,
) CheckoutService {
	return &checkoutServiceImpl{
		backend:     backend,
		cart:        cart,
		ledger:      ledger,
		notifier:    notifier,
		log:         log,
		maxParallel: maxParallel,
	}
}

func (s *checkoutServiceImpl) OnPhase(fn func(CheckoutPhase)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onPhase = fn
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, paymentMethod string) (*CheckoutOutcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, validationError("Ya hay una compra en curso")
	}
	defer s.busy.Store(false)

	s.setPhase(PhaseValidating)
	methodID, items, skipped, err := s.validateSelection(paymentMethod, s.cart.Selected())
	if err != nil {
		return nil, s.reject(err)
	}

	return s.run(ctx, items, skipped, func(ctx context.Context) []ItemResult {
		return s.fanOut(ctx, methodID, items)
	}, func(ctx context.Context, results []ItemResult) {
		for _, r := range results {
			if r.Success {
				s.record(ctx, methodID, r.Item)
			}
		}
	}, fanOutNotice)
}

func (s *checkoutServiceImpl) CheckoutBatch(ctx context.Context, paymentMethod string) (*CheckoutOutcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, validationError("Ya hay una compra en curso")
	}
	defer s.busy.Store(false)

	s.setPhase(PhaseValidating)
	methodID, items, skipped, err := s.validateSelection(paymentMethod, s.cart.Selected())
	if err != nil {
		return nil, s.reject(err)
	}

	return s.run(ctx, items, skipped, func(ctx context.Context) []ItemResult {
		req := model.CheckoutRequest{PaymentMethodID: methodID}
		for _, item := range items {
			req.Items = append(req.Items, model.CheckoutItem{DestinationID: item.DestinationID, Quantity: item.Quantity})
		}
		_, err := s.backend.Checkout(ctx, req)
		return resultsFor(items, err)
	}, func(ctx context.Context, results []ItemResult) {
		if len(results) > 0 && results[0].Success {
			s.record(ctx, methodID, items...)
		}
	}, func(out *CheckoutOutcome) Notice {
		if out.Class == OutcomeAllSucceeded {
			return Notice{Level: NoticeSuccess, Message: "Compra múltiple realizada con éxito"}
		}
		return Notice{Level: NoticeDanger, Message: client.UserMessage(out.Results[0].Err)}
	})
}

func (s *checkoutServiceImpl) BuyNow(ctx context.Context, lineID int64, paymentMethod string) (*CheckoutOutcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, validationError("Ya hay una compra en curso")
	}
	defer s.busy.Store(false)

	s.setPhase(PhaseValidating)
	methodID, err := parsePaymentMethod(paymentMethod)
	if err != nil {
		return nil, s.reject(err)
	}
	item, ok := s.cart.Item(lineID)
	if !ok || !checkoutable(item) {
		s.log.Warn("item cannot be bought", zap.Int64("id_compra", lineID))
		return nil, s.reject(validationError("No se puede comprar este ítem. Datos incompletos o cantidad inválida."))
	}

	items := []model.CartLineItem{item}
	return s.run(ctx, items, nil, func(ctx context.Context) []ItemResult {
		_, err := s.backend.Checkout(ctx, model.CheckoutRequest{
			PaymentMethodID: methodID,
			Items:           []model.CheckoutItem{{DestinationID: item.DestinationID, Quantity: item.Quantity}},
		})
		return resultsFor(items, err)
	}, func(ctx context.Context, results []ItemResult) {
		if results[0].Success {
			s.record(ctx, methodID, item)
		}
	}, func(out *CheckoutOutcome) Notice {
		if out.Class == OutcomeAllSucceeded {
			name := item.Name
			if name == "" {
				name = "ítem"
			}
			return Notice{Level: NoticeSuccess, Message: fmt.Sprintf("¡Compra de \"%s\" realizada con éxito!", name)}
		}
		return Notice{Level: NoticeDanger, Message: "Error al realizar la compra. Inténtelo de nuevo."}
	})
}

// run drives a validated checkout through InFlight and Settled. The cart is
// refreshed exactly once afterwards, whatever happened in between.
func (s *checkoutServiceImpl) run(
	ctx context.Context,
	items, skipped []model.CartLineItem,
	dispatch func(ctx context.Context) []ItemResult,
	record func(ctx context.Context, results []ItemResult),
	notice func(out *CheckoutOutcome) Notice,
) (out *CheckoutOutcome, err error) {
	// once dispatched, requests run to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	refreshed := false

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("checkout failed unexpectedly", zap.Any("panic", r))
			s.notifier.Notify(NoticeDanger, "Error general al intentar finalizar la compra. Inténtelo de nuevo.")
			if !refreshed {
				_, _ = s.cart.Refresh(ctx)
			}
			s.setPhase(PhaseIdle)
			out, err = nil, ErrCheckoutAborted
		}
	}()

	s.setPhase(PhaseInFlight)
	s.log.Info("checkout dispatched", zap.Int("items", len(items)), zap.Int("skipped", len(skipped)))

	results := dispatch(ctx)

	out = &CheckoutOutcome{Results: results, Skipped: skipped}
	for _, r := range results {
		if r.Success {
			out.SuccessCount++
		} else {
			out.ErrorCount++
			s.log.Warn("checkout item failed", zap.Int64("id_destino", r.Item.DestinationID), zap.Error(r.Err))
		}
	}

	switch {
	case out.ErrorCount == 0:
		out.Class = OutcomeAllSucceeded
		out.Next = ViewCatalog
	case out.SuccessCount > 0:
		out.Class = OutcomeSomeSucceeded
		out.Next = ViewCart
	default:
		out.Class = OutcomeNoneSucceeded
		out.Next = ViewCart
	}

	record(ctx, results)

	out.Notice = notice(out)
	s.notifier.Notify(out.Notice.Level, out.Notice.Message)

	refreshed = true
	cart, refreshErr := s.cart.Refresh(ctx)
	if refreshErr != nil {
		s.log.Warn("refresh cart after checkout", zap.Error(refreshErr))
	}
	out.Cart = cart

	s.setPhase(PhaseSettled)
	s.log.Info("checkout settled",
		zap.String("class", string(out.Class)),
		zap.Int("success", out.SuccessCount),
		zap.Int("errors", out.ErrorCount),
	)
	return out, nil
}

func (s *checkoutServiceImpl) fanOut(ctx context.Context, methodID int64, items []model.CartLineItem) []ItemResult {
	results := make([]ItemResult, len(items))

	g := new(errgroup.Group)
	if s.maxParallel > 0 {
		g.SetLimit(s.maxParallel)
	}
	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = resultsFor([]model.CartLineItem{item}, fmt.Errorf("checkout item panicked: %v", r))[0]
				}
			}()
			_, err := s.backend.Checkout(ctx, model.CheckoutRequest{
				PaymentMethodID: methodID,
				Items:           []model.CheckoutItem{{DestinationID: item.DestinationID, Quantity: item.Quantity}},
			})
			results[i] = resultsFor([]model.CartLineItem{item}, err)[0]
			// never fail the group, the sentinel carries the error
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *checkoutServiceImpl) record(ctx context.Context, methodID int64, items ...model.CartLineItem) {
	snapshots := make([]model.PurchasedItem, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, item.Snapshot())
	}
	if _, err := s.ledger.Record(ctx, snapshots, methodID); err != nil {
		s.log.Error("record purchase in history", zap.Error(err))
	}
}

func (s *checkoutServiceImpl) reject(err error) error {
	s.notifier.Notify(NoticeWarning, err.Error())
	s.setPhase(PhaseIdle)
	return err
}

func (s *checkoutServiceImpl) setPhase(p CheckoutPhase) {
	s.hookMu.RLock()
	fn := s.onPhase
	s.hookMu.RUnlock()
	if fn != nil {
		fn(p)
	}
}

// validateSelection checks the payment method and picks the selected items
// that can be sent. Invalid items are skipped, not fatal, unless none remain.
func (s *checkoutServiceImpl) validateSelection(paymentMethod string, selected []model.CartLineItem) (int64, []model.CartLineItem, []model.CartLineItem, error) {
	if strings.TrimSpace(paymentMethod) == "" {
		return 0, nil, nil, validationError("Por favor, seleccione un método de pago.")
	}
	if len(selected) == 0 {
		return 0, nil, nil, validationError("No hay ítems seleccionados en tu carrito para proceder al checkout.")
	}
	methodID, err := parsePaymentMethod(paymentMethod)
	if err != nil {
		return 0, nil, nil, err
	}

	var valid, skipped []model.CartLineItem
	for _, item := range selected {
		if checkoutable(item) {
			valid = append(valid, item)
			continue
		}
		s.log.Warn("invalid cart item skipped at checkout",
			zap.Int64("id_compra", item.LineID),
			zap.Int64("id_destino", item.DestinationID),
			zap.Int("cantidad", item.Quantity.Int()),
		)
		skipped = append(skipped, item)
	}
	if len(valid) == 0 {
		return 0, nil, nil, validationError("No hay ítems seleccionados en el carrito para comprar.")
	}
	return methodID, valid, skipped, nil
}

func parsePaymentMethod(paymentMethod string) (int64, error) {
	p := strings.TrimSpace(paymentMethod)
	if p == "" {
		return 0, validationError("Por favor, seleccione un método de pago.")
	}
	f, err := strconv.ParseFloat(p, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, validationError("Error: El método de pago seleccionado no es válido.")
	}
	return int64(f), nil
}

func checkoutable(item model.CartLineItem) bool {
	return item.DestinationID > 0 && item.Quantity > 0
}

func resultsFor(items []model.CartLineItem, err error) []ItemResult {
	results := make([]ItemResult, len(items))
	for i, item := range items {
		results[i] = ItemResult{Item: item, Success: err == nil}
		if err != nil {
			results[i].Err = err
			results[i].Error = client.UserMessage(err)
		}
	}
	return results
}

func fanOutNotice(out *CheckoutOutcome) Notice {
	total := out.SuccessCount + out.ErrorCount
	switch out.Class {
	case OutcomeAllSucceeded:
		return Notice{Level: NoticeSuccess, Message: "Todos los ítems seleccionados comprados con éxito."}
	case OutcomeSomeSucceeded:
		return Notice{
			Level:   NoticeWarning,
			Message: fmt.Sprintf("Se compraron %d de %d ítems seleccionados. Fallaron %d ítems.", out.SuccessCount, total, out.ErrorCount),
		}
	default:
		return Notice{
			Level:   NoticeDanger,
			Message: fmt.Sprintf("Se compraron 0 de %d ítems seleccionados. Fallaron %d ítems.", total, out.ErrorCount),
		}
	}
}
