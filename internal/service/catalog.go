package service

import (
	"context"
	"time"

	"travel-storefront/internal/client"
	"travel-storefront/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CatalogService interface {
	// Fetch returns the destinations still on sale, with availability flags.
	Fetch(ctx context.Context) ([]model.Destination, error)
	PaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)
}

type catalogServiceImpl struct {
	backend client.BackendClient
	log     *zap.Logger
	now     func() time.Time
	sf      singleflight.Group
}

func NewCatalogService(backend client.BackendClient, log *zap.Logger) CatalogService {
	return &catalogServiceImpl{
		backend: backend,
		log:     log,
		now:     time.Now,
	}
}

func (s *catalogServiceImpl) Fetch(ctx context.Context) ([]model.Destination, error) {
	// concurrent page loads share one backend round trip, detached from
	// whichever caller happened to start it
	ch := s.sf.DoChan("destinos", func() (interface{}, error) {
		return s.backend.ListDestinations(context.WithoutCancel(ctx))
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		s.log.Error("fetch catalog", zap.Error(res.Err))
		return nil, res.Err
	}

	return FilterCurrent(res.Val.([]model.Destination), s.now()), nil
}

func (s *catalogServiceImpl) PaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	methods, err := s.backend.ListPaymentMethods(ctx)
	if err != nil {
		s.log.Error("fetch payment methods", zap.Error(err))
		return nil, err
	}
	return methods, nil
}

// FilterCurrent derives the availability flags and keeps only destinations
// whose departure is still ahead. Destinations without a date carry no
// flags and are therefore dropped too.
func FilterCurrent(destinations []model.Destination, now time.Time) []model.Destination {
	out := make([]model.Destination, 0, len(destinations))
	for _, d := range destinations {
		d.DeriveFlags(now)
		if d.Current() {
			out = append(out, d)
		}
	}
	return out
}
