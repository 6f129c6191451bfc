package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"travel-storefront/internal/client"
	"travel-storefront/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTripImage = "assets/img/default-trip.jpg"
	unknownMethod    = "No especificado"
	unknownDate      = "Fecha no disponible"
)

type DashboardService interface {
	// History lists server purchases followed by local ledger entries.
	// When the server is unreachable only the local entries are returned.
	History(ctx context.Context) []model.PurchaseView
}

type dashboardServiceImpl struct {
	backend client.BackendClient
	ledger  Ledger
	log     *zap.Logger
}

func NewDashboardService(backend client.BackendClient, ledger Ledger, log *zap.Logger) DashboardService {
	return &dashboardServiceImpl{
		backend: backend,
		ledger:  ledger,
		log:     log,
	}
}

func (s *dashboardServiceImpl) History(ctx context.Context) []model.PurchaseView {
	var (
		server    []model.Purchase
		serverErr error
		local     []model.PurchaseHistoryEntry
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		server, serverErr = s.backend.ListPurchases(ctx)
		return nil
	})
	g.Go(func() error {
		local = s.ledger.List(ctx)
		return nil
	})
	_ = g.Wait()

	if serverErr != nil {
		if errors.Is(serverErr, client.ErrUnauthorized) {
			s.log.Warn("purchases rejected, session expired")
		} else {
			s.log.Error("load purchases from backend", zap.Error(serverErr))
		}
		server = nil
	}

	return MergeHistory(server, local)
}

// MergeHistory concatenates server purchases and local entries, server
// first. No deduplication is done between the two.
func MergeHistory(server []model.Purchase, local []model.PurchaseHistoryEntry) []model.PurchaseView {
	out := make([]model.PurchaseView, 0, len(server)+len(local))
	for _, p := range server {
		out = append(out, serverView(p))
	}
	for _, e := range local {
		out = append(out, localView(e))
	}
	return out
}

func serverView(p model.Purchase) model.PurchaseView {
	method := p.PaymentMethod.Name
	if method == "" {
		method = unknownMethod
	}
	total := p.Total.Decimal()
	return model.PurchaseView{
		ID:             strconv.FormatInt(p.ID, 10),
		Name:           p.Destination.Name,
		Image:          p.Destination.Image,
		Quantity:       p.Quantity.Int(),
		Total:          total,
		TotalFormatted: FormatARS(total),
		CreatedAt:      p.CreatedAt.Time,
		DateFormatted:  formatDate(p.CreatedAt.Time),
		PaymentMethod:  method,
		IsLocal:        false,
	}
}

func localView(e model.PurchaseHistoryEntry) model.PurchaseView {
	names := make([]string, 0, len(e.Items))
	quantity := 0
	total := decimal.Zero
	for _, item := range e.Items {
		name := item.Name
		if name == "" {
			name = "Destino"
		}
		names = append(names, name)

		q := item.Quantity.Int()
		if q == 0 {
			q = 1
		}
		quantity += q
		total = total.Add(item.Price.Decimal().Mul(decimal.NewFromInt(int64(q))))
	}

	image := defaultTripImage
	if len(e.Items) > 0 && e.Items[0].Image != "" {
		image = e.Items[0].Image
	}

	method := unknownMethod
	if e.PaymentMethodID != 0 {
		method = fmt.Sprintf("Método %d", e.PaymentMethodID)
	}

	return model.PurchaseView{
		ID:             e.Date.Format(time.RFC3339Nano),
		Name:           strings.Join(names, ", "),
		Image:          image,
		Quantity:       quantity,
		Total:          total,
		TotalFormatted: FormatARS(total),
		CreatedAt:      e.Date,
		DateFormatted:  formatDate(e.Date),
		PaymentMethod:  method,
		IsLocal:        true,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return unknownDate
	}
	return t.Format("02/01/2006, 15:04")
}

// FormatARS renders an amount the way the storefront shows pesos: $ 1.234,50
func FormatARS(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$ " + b.String() + "," + frac
}
