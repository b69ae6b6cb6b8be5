package pricing

import "github.com/shopspring/decimal"

func intPtr(v int) *int { return &v }

var fallbackRates = []Rate{
	{CustomerType: CustomerIndividual, DistanceMinKm: 0, DistanceMaxKm: intPtr(40), RatePerKm: decimal.RequireFromString("4.20"), IsActive: true},
	{CustomerType: CustomerIndividual, DistanceMinKm: 41, DistanceMaxKm: intPtr(90), RatePerKm: decimal.RequireFromString("2.20"), IsActive: true},
	{CustomerType: CustomerIndividual, DistanceMinKm: 91, RatePerKm: decimal.RequireFromString("1.51"), IsActive: true},
	{CustomerType: CustomerProfessional, DistanceMinKm: 0, DistanceMaxKm: intPtr(40), RatePerKm: decimal.RequireFromString("3.50"), IsActive: true},
	{CustomerType: CustomerProfessional, DistanceMinKm: 41, DistanceMaxKm: intPtr(90), RatePerKm: decimal.RequireFromString("1.82"), IsActive: true},
	{CustomerType: CustomerProfessional, DistanceMinKm: 91, RatePerKm: decimal.RequireFromString("1.26"), IsActive: true},
}

var defaultRates = map[CustomerType]decimal.Decimal{
	CustomerIndividual:   decimal.RequireFromString("1.51"),
	CustomerProfessional: decimal.RequireFromString("1.26"),
}

// FallbackRates returns a copy of the built-in tier table.
func FallbackRates() []Rate {
	out := make([]Rate, len(fallbackRates))
	copy(out, fallbackRates)
	return out
}

// ResolveRate picks the per-km rate for distanceKm. Live rates are tried first in
// their given order, then the built-in table, then a flat default per customer type.
func ResolveRate(rates []Rate, distanceKm int, customerType CustomerType) Resolution {
	if r, ok := matchTier(rates, distanceKm, customerType); ok {
		return Resolution{RatePerKm: r, Source: SourceLive}
	}
	if r, ok := matchTier(fallbackRates, distanceKm, customerType); ok {
		return Resolution{RatePerKm: r, Source: SourceFallback}
	}
	if r, ok := defaultRates[customerType]; ok {
		return Resolution{RatePerKm: r, Source: SourceDefault}
	}
	return Resolution{RatePerKm: defaultRates[CustomerIndividual], Source: SourceDefault}
}

func matchTier(rates []Rate, km int, ct CustomerType) (decimal.Decimal, bool) {
	for _, r := range rates {
		if r.CustomerType != ct {
			continue
		}
		if r.Covers(km) {
			return r.RatePerKm, true
		}
	}
	return decimal.Decimal{}, false
}

// Overlap names two active tiers of the same customer type that share a distance.
type Overlap struct {
	A, B Rate
}

// FindOverlaps lists every pair of active same-type tiers whose ranges intersect.
func FindOverlaps(rates []Rate) []Overlap {
	var out []Overlap
	for i := 0; i < len(rates); i++ {
		a := rates[i]
		if !a.IsActive {
			continue
		}
		for j := i + 1; j < len(rates); j++ {
			b := rates[j]
			if !b.IsActive || b.CustomerType != a.CustomerType {
				continue
			}
			if rangesIntersect(a, b) {
				out = append(out, Overlap{A: a, B: b})
			}
		}
	}
	return out
}

func rangesIntersect(a, b Rate) bool {
	if a.DistanceMaxKm != nil && b.DistanceMinKm > *a.DistanceMaxKm {
		return false
	}
	if b.DistanceMaxKm != nil && a.DistanceMinKm > *b.DistanceMaxKm {
		return false
	}
	return true
}
