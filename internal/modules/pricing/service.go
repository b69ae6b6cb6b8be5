// README: Pricing service computes convoyage prices and manages the admin rate table.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"convoyage/internal/types"
)

var (
	ErrNotFound   = errors.New("rate not found")
	ErrValidation = errors.New("invalid rate")
)

// RateStore is the admin view of the rate table.
type RateStore interface {
	RateSource
	ListRates(ctx context.Context) ([]Rate, error)
	CreateRate(ctx context.Context, in RateInput) (Rate, error)
	UpdateRate(ctx context.Context, id string, in RateInput) (Rate, error)
	DeleteRate(ctx context.Context, id string) error
}

type Service struct {
	store RateStore
	cache *Cache
}

func NewService(store RateStore, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

// Quote is a priced distance with the rate that produced it.
type Quote struct {
	DistanceKm   int
	CustomerType CustomerType
	RatePerKm    decimal.Decimal
	Source       Source
	Price        types.Money
}

// Quote prices distanceKm with the cached rates, refreshing them when stale.
func (s *Service) Quote(ctx context.Context, distanceKm int, customerType CustomerType) Quote {
	return s.quote(s.cache.Rates(ctx), distanceKm, customerType)
}

// QuoteSync prices distanceKm with the last known rates only.
func (s *Service) QuoteSync(distanceKm int, customerType CustomerType) Quote {
	return s.quote(s.cache.Snapshot(), distanceKm, customerType)
}

func (s *Service) CalculatePrice(ctx context.Context, distanceKm int, customerType CustomerType) types.Money {
	return s.Quote(ctx, distanceKm, customerType).Price
}

func (s *Service) CalculatePriceSync(distanceKm int, customerType CustomerType) types.Money {
	return s.QuoteSync(distanceKm, customerType).Price
}

func (s *Service) quote(rates []Rate, distanceKm int, customerType CustomerType) Quote {
	if distanceKm < 0 {
		distanceKm = 0
	}
	res := ResolveRate(rates, distanceKm, customerType)
	s.cache.observer.RateResolved(customerType, res.Source)
	return Quote{
		DistanceKm:   distanceKm,
		CustomerType: customerType,
		RatePerKm:    res.RatePerKm,
		Source:       res.Source,
		Price:        types.EUR(res.RatePerKm.Mul(decimal.NewFromInt(int64(distanceKm)))),
	}
}

func (s *Service) ListRates(ctx context.Context) ([]Rate, error) {
	return s.store.ListRates(ctx)
}

// CreateRate stores a new tier. Active tiers may not overlap another active tier of
// the same customer type.
func (s *Service) CreateRate(ctx context.Context, in RateInput) (Rate, error) {
	if err := ValidateInput(in); err != nil {
		return Rate{}, err
	}
	if err := s.checkOverlap(ctx, "", in); err != nil {
		return Rate{}, err
	}
	return s.store.CreateRate(ctx, in)
}

func (s *Service) UpdateRate(ctx context.Context, id string, in RateInput) (Rate, error) {
	if id == "" {
		return Rate{}, ErrNotFound
	}
	if err := ValidateInput(in); err != nil {
		return Rate{}, err
	}
	if err := s.checkOverlap(ctx, id, in); err != nil {
		return Rate{}, err
	}
	return s.store.UpdateRate(ctx, id, in)
}

func (s *Service) DeleteRate(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	return s.store.DeleteRate(ctx, id)
}

// ValidateInput checks a tier on its own, without looking at its neighbours.
func ValidateInput(in RateInput) error {
	if !in.CustomerType.Valid() {
		return fmt.Errorf("%w: unknown customer type %q", ErrValidation, in.CustomerType)
	}
	if in.DistanceMinKm < 0 {
		return fmt.Errorf("%w: distance_min_km must be >= 0", ErrValidation)
	}
	if in.DistanceMaxKm != nil && *in.DistanceMaxKm < in.DistanceMinKm {
		return fmt.Errorf("%w: distance_max_km must be >= distance_min_km", ErrValidation)
	}
	if !in.RatePerKm.IsPositive() {
		return fmt.Errorf("%w: rate_per_km must be positive", ErrValidation)
	}
	return nil
}

func (s *Service) checkOverlap(ctx context.Context, id string, in RateInput) error {
	if !in.IsActive {
		return nil
	}
	existing, err := s.store.ListRates(ctx)
	if err != nil {
		return err
	}
	candidate := Rate{
		ID:            id,
		CustomerType:  in.CustomerType,
		DistanceMinKm: in.DistanceMinKm,
		DistanceMaxKm: in.DistanceMaxKm,
		RatePerKm:     in.RatePerKm,
		IsActive:      true,
	}
	for _, r := range existing {
		if r.ID == id || !r.IsActive || r.CustomerType != in.CustomerType {
			continue
		}
		if rangesIntersect(candidate, r) {
			return fmt.Errorf("%w: overlaps tier %d-%s km", ErrValidation, r.DistanceMinKm, maxLabel(r.DistanceMaxKm))
		}
	}
	return nil
}

func maxLabel(v *int) string {
	if v == nil {
		return "∞"
	}
	return fmt.Sprintf("%d", *v)
}
