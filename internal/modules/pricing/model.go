// README: Distance-tiered per-kilometre rates for each customer type.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type CustomerType string

const (
	CustomerIndividual   CustomerType = "individual"
	CustomerProfessional CustomerType = "professional"
)

func (c CustomerType) Valid() bool {
	return c == CustomerIndividual || c == CustomerProfessional
}

// Label is the French display name.
func (c CustomerType) Label() string {
	switch c {
	case CustomerProfessional:
		return "Professionnel"
	case CustomerIndividual:
		return "Particulier"
	default:
		return string(c)
	}
}

// Rate is one tier: DistanceMaxKm nil means unbounded.
type Rate struct {
	ID            string
	CustomerType  CustomerType
	DistanceMinKm int
	DistanceMaxKm *int
	RatePerKm     decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Covers reports whether km falls inside the tier, bounds inclusive.
func (r Rate) Covers(km int) bool {
	if km < r.DistanceMinKm {
		return false
	}
	return r.DistanceMaxKm == nil || km <= *r.DistanceMaxKm
}

// Source tells which degradation level produced a rate.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceDefault  Source = "default"
)

type Resolution struct {
	RatePerKm decimal.Decimal
	Source    Source
}

// RateInput is the admin-editable part of a tier.
type RateInput struct {
	CustomerType  CustomerType
	DistanceMinKm int
	DistanceMaxKm *int
	RatePerKm     decimal.Decimal
	IsActive      bool
}
